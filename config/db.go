package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rental-backend/models"
)

var DB *gorm.DB

// SeedDatabase ensures the default admin, roles and TM30 permissions exist.
func SeedDatabase() {
	// ---------------- Admins ----------------
	var adminCount int64
	DB.Model(&models.Admin{}).Count(&adminCount)
	if adminCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("warning: failed to hash default admin password: %v", err)
		} else {
			admin := models.Admin{
				FullName: "Admin User",
				Username: "admin@rental.local",
				Password: string(hash),
			}
			if err := DB.Create(&admin).Error; err != nil {
				log.Printf("warning: failed to create default admin: %v", err)
			} else {
				log.Println("Default admin seeded")
			}
		}
	}

	// ---------------- Roles ----------------
	desiredRoles := []models.Role{
		{Name: "owner", Description: "System owner with full access"},
		{Name: "Manager", Description: "Manager with elevated access"},
		{Name: "Operator", Description: "TM30 filing operations"},
	}

	allPerms := []string{
		"bookingManagement.view",
		"bookingManagement.create",
		"bookingManagement.edit",
		"bookingManagement.delete",
		"propertyManagement.view",
		"propertyManagement.edit",
		"tm30Verification.view",
		"tm30Verification.submit",
		"tm30Verification.verify",
		"rolesAndPermissions.view",
		"rolesAndPermissions.edit",
	}

	rolesByKey := map[string]models.Role{}
	for i := range desiredRoles {
		role := desiredRoles[i]
		key := strings.ToLower(role.Name)

		var existing models.Role
		err := DB.Where("LOWER(name) = ?", key).First(&existing).Error
		if err == nil && existing.ID != 0 {
			rolesByKey[key] = existing
			continue
		}

		if err := DB.Create(&role).Error; err != nil {
			log.Printf("warning: failed to create role %s: %v", role.Name, err)
			continue
		}
		rolesByKey[key] = role
	}

	ownerRole, ok := rolesByKey["owner"]
	if ok && ownerRole.ID != 0 {
		var permCount int64
		DB.Model(&models.RolePermission{}).Where("role_id = ?", ownerRole.ID).Count(&permCount)
		if permCount == 0 {
			perms := make([]models.RolePermission, 0, len(allPerms))
			for _, p := range allPerms {
				perms = append(perms, models.RolePermission{RoleID: ownerRole.ID, Permission: p})
			}
			if err := DB.Create(&perms).Error; err != nil {
				log.Printf("warning: failed to create owner permissions: %v", err)
			}
		}

		var memberCount int64
		DB.Model(&models.RoleMember{}).Where("role_id = ?", ownerRole.ID).Count(&memberCount)
		if memberCount == 0 {
			var admins []models.Admin
			DB.Find(&admins)
			if len(admins) > 0 {
				members := make([]models.RoleMember, 0, len(admins))
				for _, admin := range admins {
					members = append(members, models.RoleMember{RoleID: ownerRole.ID, AdminID: admin.ID})
				}
				if err := DB.Create(&members).Error; err != nil {
					log.Printf("warning: failed to assign admins to owner role: %v", err)
				}
			}
		}
	}

	log.Println("Roles ensured")
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "Local")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

func resolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := envOrDefault("DB_USER", "root")
	pass := envOrDefault("DB_PASS", "")
	host := envOrDefault("DB_HOST", "127.0.0.1")
	port := envOrDefault("DB_PORT", "3306")
	dbName := envOrDefault("DB_NAME", "rental_db")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, dbName,
	), nil
}

func ConnectDatabase() error {
	dsn, err := resolveMySQLDSN()
	if err != nil {
		return err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return err
	}

	DB = db

	// AutoMigrate in parent->child order
	if err := DB.AutoMigrate(
		&models.Admin{},
		&models.Role{},
		&models.RolePermission{},
		&models.RoleMember{},
		&models.Property{},
		&models.Customer{},
		&models.Booking{},
		&models.Guest{},
	); err != nil {
		return err
	}

	SeedDatabase()
	return nil
}
