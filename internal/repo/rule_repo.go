package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

// ListBusinessRules reads every keyword/response row from table in id order.
// An empty table name means the default "business_rules".
func ListBusinessRules(ctx context.Context, db *gorm.DB, table string) ([]domain.BusinessRule, error) {
	if strings.TrimSpace(table) == "" {
		table = domain.BusinessRule{}.TableName()
	}
	var rows []domain.BusinessRule
	err := db.WithContext(ctx).
		Table(table).
		Select("id", "keyword", "response").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
