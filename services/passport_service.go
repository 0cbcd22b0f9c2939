package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/tm30"
)

var (
	ErrGuestNotFound  = errors.New("guest_not_found")
	ErrMissingImage   = errors.New("missing_image")
	ErrAmbiguousImage = errors.New("ambiguous_image")
	ErrStorageFailed  = errors.New("storage_failed")
)

// PassportSubmission is the intake input: exactly one of ImageURL/ImageBase64.
type PassportSubmission struct {
	ImageURL    string
	ImageBase64 string
	MimeType    string
}

// PassportIntakeResult is the structured outcome surfaced to the caller.
// OCRError is set when extraction failed but the image was still persisted.
type PassportIntakeResult struct {
	GuestID    uint                    `json:"guestId"`
	Status     tm30.GuestStatus        `json:"status"`
	Extracted  *tm30.ExtractedPassport `json:"extracted,omitempty"`
	Confidence float64                 `json:"confidence"`
	ImageURL   string                  `json:"imageUrl"`
	OCRError   string                  `json:"ocrError,omitempty"`
}

// PassportService is the intake adapter: persist the image, run OCR, validate,
// update the guest record and recompute the booking aggregate.
type PassportService struct {
	DB      *gorm.DB
	OCR     PassportOCR
	Store   *PassportImageStore
	Agg     *Aggregator
	Fetcher *http.Client // downloads URL-referenced images
}

func NewPassportService(db *gorm.DB, ocr PassportOCR, store *PassportImageStore, agg *Aggregator) *PassportService {
	return &PassportService{
		DB:      db,
		OCR:     ocr,
		Store:   store,
		Agg:     agg,
		Fetcher: &http.Client{Timeout: 20 * time.Second},
	}
}

// SubmitPassport runs the full intake flow for one guest.
//
// Failure contract: storage failure aborts before OCR with the guest record
// unchanged; OCR failure still persists the image URL so the operator can
// retry without re-uploading, and the reason is surfaced, never swallowed.
func (s *PassportService) SubmitPassport(ctx context.Context, guestID uint, in PassportSubmission) (PassportIntakeResult, error) {
	if in.ImageURL == "" && in.ImageBase64 == "" {
		return PassportIntakeResult{}, ErrMissingImage
	}
	if in.ImageURL != "" && in.ImageBase64 != "" {
		return PassportIntakeResult{}, ErrAmbiguousImage
	}

	var guest models.Guest
	if err := s.DB.First(&guest, guestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PassportIntakeResult{}, ErrGuestNotFound
		}
		return PassportIntakeResult{}, fmt.Errorf("load guest: %w", err)
	}

	imageBase64 := in.ImageBase64
	imageURL := in.ImageURL

	if in.ImageBase64 != "" {
		url, err := s.Store.Save(guest.BookingID, guest.ID, in.ImageBase64, in.MimeType)
		if err != nil {
			log.Printf("❌ passport image store failed guest=%d: %v", guestID, err)
			return PassportIntakeResult{}, fmt.Errorf("%w: %v", ErrStorageFailed, err)
		}
		imageURL = url
	} else {
		b64, err := s.fetchImageBase64(ctx, in.ImageURL)
		if err != nil {
			// Same contract as an OCR failure: the URL is still recorded.
			return s.recordOCRFailure(guest, imageURL, fmt.Errorf("fetch image: %w", err))
		}
		imageBase64 = b64
	}

	ocrRes, err := s.OCR.Extract(ctx, imageBase64)
	if err != nil {
		return s.recordOCRFailure(guest, imageURL, err)
	}

	extracted := tm30.FromOCRFields(ocrRes.Fields, ocrRes.Confidence)
	if vErr := extracted.Validate(); vErr != nil {
		// OCR ran but produced an unusable record; keep image + raw payload
		// for inspection, guest stays not-yet-scanned.
		guest.PassportImageURL = imageURL
		guest.OCRRaw = datatypes.JSON(ocrRes.Raw)
		guest.OCRConfidence = ocrRes.Confidence
		if err := s.DB.Save(&guest).Error; err != nil {
			return PassportIntakeResult{}, fmt.Errorf("persist guest: %w", err)
		}
		_ = s.Agg.Recompute(guest.BookingID)
		return PassportIntakeResult{
			GuestID:  guest.ID,
			Status:   guest.TM30Status,
			ImageURL: imageURL,
			OCRError: vErr.Error(),
		}, nil
	}

	next, tErr := tm30.TransitionGuest(guest.TM30Status, tm30.GuestScanned, false)
	if tErr != nil {
		// SUBMITTED guests never regress through intake.
		return PassportIntakeResult{}, tErr
	}

	guest.ApplyExtracted(extracted)
	guest.PassportImageURL = imageURL
	guest.OCRRaw = datatypes.JSON(ocrRes.Raw)
	guest.PassportVerified = false
	guest.TM30Status = next
	now := time.Now()
	guest.OCRProcessedAt = &now

	if err := s.DB.Save(&guest).Error; err != nil {
		return PassportIntakeResult{}, fmt.Errorf("persist guest: %w", err)
	}

	if err := s.Agg.Recompute(guest.BookingID); err != nil {
		log.Printf("⚠️ recompute after intake failed booking=%d: %v", guest.BookingID, err)
	}

	log.Printf("✅ passport intake ok guest=%d booking=%d confidence=%.2f", guest.ID, guest.BookingID, extracted.Confidence)
	return PassportIntakeResult{
		GuestID:    guest.ID,
		Status:     guest.TM30Status,
		Extracted:  &extracted,
		Confidence: extracted.Confidence,
		ImageURL:   imageURL,
	}, nil
}

// recordOCRFailure persists the image URL on the guest but leaves the status
// untouched (not yet scanned) and reports the reason back to the caller.
func (s *PassportService) recordOCRFailure(guest models.Guest, imageURL string, cause error) (PassportIntakeResult, error) {
	log.Printf("⚠️ passport OCR failed guest=%d booking=%d: %v", guest.ID, guest.BookingID, cause)

	guest.PassportImageURL = imageURL
	if err := s.DB.Save(&guest).Error; err != nil {
		return PassportIntakeResult{}, fmt.Errorf("persist guest after OCR failure: %w", err)
	}
	_ = s.Agg.Recompute(guest.BookingID)

	return PassportIntakeResult{
		GuestID:  guest.ID,
		Status:   guest.TM30Status,
		ImageURL: imageURL,
		OCRError: cause.Error(),
	}, nil
}

func (s *PassportService) fetchImageBase64(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Fetcher.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d fetching image", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 15<<20))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
