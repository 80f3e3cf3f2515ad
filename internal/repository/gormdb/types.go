package gormdb

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LongText maps to LONGTEXT on MySQL, where TEXT caps at 64KB, and TEXT elsewhere.
type LongText string

// GormDBDataType picks the column type per dialect
func (LongText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "LONGTEXT"
	}
	return "TEXT"
}

func (lt LongText) Value() (driver.Value, error) {
	return string(lt), nil
}

func (lt *LongText) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*lt = ""
	case string:
		*lt = LongText(v)
	case []byte:
		*lt = LongText(v)
	default:
		return fmt.Errorf("unsupported LongText scan type %T", value)
	}
	return nil
}
