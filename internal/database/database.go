package database

import (
	"log"
	"sync"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DBManager struct {
	WriteDB      *gorm.DB
	ReadDBs      []*gorm.DB
	currentRead  int
	replicaMutex sync.Mutex
}

var (
	instance *DBManager
	once     sync.Once
)

func GetDBManager() *DBManager {
	once.Do(func() {
		instance = &DBManager{
			ReadDBs: make([]*gorm.DB, 0),
		}
		instance.initialize()
	})
	return instance
}

func (m *DBManager) initialize() {
	writeDB, err := gorm.Open(mysql.Open(configs.AppConfig.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to write database:", err)
	}
	m.WriteDB = writeDB

	err = m.WriteDB.AutoMigrate(
		&models.Tenant{},
		&models.TenantSubscription{},
		&models.Operator{},
		&models.Channel{},
		&models.AccessEvent{},
		&models.DiagnosisSession{},
		&models.CTAClickEvent{},
		&models.AuditLogEntry{},
		&models.PasswordResetToken{},
	)
	if err != nil {
		log.Fatal("Failed to auto-migrate database:", err)
	}

	sqlDB, err := m.WriteDB.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// Read replicas share the primary DSN unless REPLICA_URLS is introduced;
	// event reads are cheap but reporting queries should not contend with the
	// append-only write path.
	for i := 0; i < 2; i++ {
		readDB, err := gorm.Open(mysql.Open(configs.AppConfig.DatabaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Printf("Warning: Failed to connect to read replica %d: %v", i, err)
			continue
		}
		m.ReadDBs = append(m.ReadDBs, readDB)
	}

	log.Println("Database connection established successfully")
}

// GetReadDB returns a read replica using round-robin
func (m *DBManager) GetReadDB() *gorm.DB {
	m.replicaMutex.Lock()
	defer m.replicaMutex.Unlock()

	if len(m.ReadDBs) == 0 {
		return m.WriteDB
	}

	db := m.ReadDBs[m.currentRead]
	m.currentRead = (m.currentRead + 1) % len(m.ReadDBs)
	return db
}
