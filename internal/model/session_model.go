package model

import (
	"time"

	"gorm.io/datatypes"
)

type ConnectorSession struct {
	Id        string         `gorm:"type:text;primaryKey"`
	Values    datatypes.JSON `gorm:"column:data;type:jsonb;not null"`
	ExpiresAt time.Time      `gorm:"not null;index"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (ConnectorSession) TableName() string {
	return "connector_sessions"
}
