/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Controller is a rostered air traffic controller.
type Controller struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName string    `gorm:"type:varchar(80);index:idx_controller_name" json:"first_name"`
	LastName  string    `gorm:"type:varchar(120);index:idx_controller_name" json:"last_name"`
	Email     string    `gorm:"type:varchar(120);index" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a uuid when none was set.
func (c *Controller) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// DisplayName is the "first last" form shown on the board.
func (c Controller) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// WorkArea is a sector or position that controllers staff.
type WorkArea struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(16);uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a uuid when none was set.
func (w *WorkArea) BeforeCreate(*gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// ShiftType is the roster shift letter.
type ShiftType string

const (
	ShiftMorning   ShiftType = "M"
	ShiftAfternoon ShiftType = "T"
	ShiftNight     ShiftType = "N"
)

// Roster is one daily duty roster of a control unit.
type Roster struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Unit      string    `gorm:"type:varchar(8);index:idx_roster_unit_date" json:"unit"`
	Date      time.Time `gorm:"index:idx_roster_unit_date" json:"date"`
	Shift     ShiftType `gorm:"type:varchar(1)" json:"shift"`
	StartsAt  time.Time `json:"starts_at"` // UTC
	EndsAt    time.Time `json:"ends_at"`   // UTC
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a uuid when none was set.
func (r *Roster) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// DutyPeriod is one controller's activity window within a roster.
// A nil WorkAreaID marks a rest period.
type DutyPeriod struct {
	ID           string      `gorm:"type:uuid;primaryKey" json:"id"`
	RosterID     string      `gorm:"type:uuid;index:idx_duty_period_roster;not null" json:"roster_id"`
	ControllerID string      `gorm:"type:uuid;index:idx_duty_period_controller;not null" json:"controller_id"`
	WorkAreaID   *string     `gorm:"type:uuid" json:"work_area_id,omitempty"`
	StartsAt     time.Time   `gorm:"index:idx_duty_period_roster;not null" json:"starts_at"` // UTC
	EndsAt       time.Time   `gorm:"not null" json:"ends_at"`                                // UTC
	Activity     string      `gorm:"type:varchar(8);not null" json:"activity"`
	Controller   *Controller `gorm:"foreignKey:ControllerID" json:"controller,omitempty"`
	WorkArea     *WorkArea   `gorm:"foreignKey:WorkAreaID" json:"work_area,omitempty"`
	Roster       *Roster     `gorm:"foreignKey:RosterID" json:"-"`
}

// BeforeCreate assigns a uuid when none was set.
func (p *DutyPeriod) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TableName returns the table name for GORM.
func (DutyPeriod) TableName() string {
	return "duty_periods"
}
