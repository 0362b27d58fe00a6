package main

import (
	"context"
	"log"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/conversions"
	"csv-json-stream/exports"
	"csv-json-stream/storage"
	"csv-json-stream/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) {
	if err := users.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate users:", err)
	}
	if err := common.AutoMigrateJobs(db); err != nil {
		log.Fatal("Failed to migrate job tables:", err)
	}
}

// openRecordStore selects the record store backend named in the configuration
func openRecordStore(cfg common.Config, db *gorm.DB) (storage.RecordStore, error) {
	if cfg.RecordStore == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewPostgresStore(ctx, cfg.PostgresDSN, cfg.BatchSize)
	}
	return storage.NewGormStore(db, cfg.BatchSize)
}

func setupRouter(cfg common.Config) *gin.Engine {
	r := gin.Default()
	r.RedirectTrailingSlash = false
	r.Use(common.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	users.RegisterRoutes(v1.Group("/users"), []byte(cfg.JWTSecret))

	api := v1.Group("")
	if cfg.AuthRequired {
		api.Use(users.AuthMiddleware([]byte(cfg.JWTSecret)))
	}
	jobs := api.Group("/conversions")
	conversions.RegisterRoutes(jobs)
	exports.RegisterRoutes(api, jobs)

	return r
}

func main() {
	cfg := common.LoadConfig()
	if result := cfg.Validate(); !result.Valid {
		log.Fatal("Invalid configuration: ", result.ToJSON())
	}

	db := common.Init(cfg.DatabasePath)
	Migrate(db)

	sqlDB, err := db.DB()
	if err != nil {
		log.Println("Failed to get sql.DB:", err)
	} else {
		defer sqlDB.Close()
	}

	store, err := openRecordStore(cfg, db)
	if err != nil {
		log.Fatal("Failed to open record store: ", err)
	}
	defer store.Close()
	storage.Init(store)
	log.Printf("Record store: %s", cfg.RecordStore)

	conversions.Configure(cfg)
	exports.Configure(cfg)

	r := setupRouter(cfg)

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
