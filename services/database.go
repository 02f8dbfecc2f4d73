package services

import (
	"fmt"
	"log"

	"rover-core/config"
	"rover-core/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase - 설정의 DB_DRIVER에 따라 연결하고 마이그레이션.
// "none"이면 (nil, nil)을 반환하고 로그는 저장되지 않는다.
func OpenDatabase(s config.Settings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch s.DBDriver {
	case "none", "":
		log.Println("⚠️ DB 비활성화 (DB_DRIVER=none), 로그는 저장되지 않습니다")
		return nil, nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLDatabase)
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(s.SQLitePath)
	default:
		return nil, fmt.Errorf("지원하지 않는 DB 드라이버: %q", s.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	switch s.DBDriver {
	case "mysql":
		log.Println("✅ MySQL 연결 및 마이그레이션 완료")
		log.Printf("📡 연결 정보: %s:%s@%s:%d/%s", s.MySQLUser, maskPassword(s.MySQLPassword), s.MySQLHost, s.MySQLPort, s.MySQLDatabase)
	case "sqlite":
		log.Printf("✅ SQLite 연결 및 마이그레이션 완료 (%s)", s.SQLitePath)
	}
	return db, nil
}

// Migrate - 테이블 자동 생성
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.RoverLog{}); err != nil {
		return fmt.Errorf("마이그레이션 실패: %w", err)
	}
	return nil
}

func maskPassword(p string) string {
	if len(p) <= 3 {
		return "***"
	}
	return p[:3] + "***"
}
