package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/models"
)

type Config struct {
	PORT        string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET    string
	KAFKA_ADDRESS string

	VNP_TMN_CODE    string
	VNP_HASH_SECRET string
	VNP_URL         string
	VNP_RETURN_URL  string

	PAYOS_CLIENT_ID    string
	PAYOS_API_KEY      string
	PAYOS_CHECKSUM_KEY string
	PAYOS_URL          string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:        os.Getenv("PORT"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET:    os.Getenv("JWT_SECRET"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		VNP_TMN_CODE:    os.Getenv("VNP_TMN_CODE"),
		VNP_HASH_SECRET: os.Getenv("VNP_HASH_SECRET"),
		VNP_URL:         os.Getenv("VNP_URL"),
		VNP_RETURN_URL:  os.Getenv("VNP_RETURN_URL"),

		PAYOS_CLIENT_ID:    os.Getenv("PAYOS_CLIENT_ID"),
		PAYOS_API_KEY:      os.Getenv("PAYOS_API_KEY"),
		PAYOS_CHECKSUM_KEY: os.Getenv("PAYOS_CHECKSUM_KEY"),
		PAYOS_URL:          os.Getenv("PAYOS_URL"),
	}

	if config.PORT == "" {
		config.PORT = "8080"
	}

	return config, nil
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.Admin{},
		&models.CartItem{},
		&models.Order{},
		&models.Payment{},
		&models.CareSchedule{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
