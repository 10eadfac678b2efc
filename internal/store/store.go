/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store loads and saves rosters through gorm and converts them into
// the flat period lists the board presenter works on.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/models"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRosterNotFound indicates the requested roster does not exist.
	ErrRosterNotFound = errors.New("roster not found")
	// ErrEmptySnapshot indicates an import without any period.
	ErrEmptySnapshot = errors.New("roster has no periods")
)

// controllerNamespace seeds deterministic controller ids derived from names.
var controllerNamespace = uuid.MustParse("6f1c1b0e-7d4a-4c55-9a53-0c3f5b1d2e77")

// Snapshot is one roster with its periods ordered by start.
type Snapshot struct {
	RosterID string          `json:"roster_id"`
	Unit     string          `json:"unit"`
	Date     time.Time       `json:"date"`
	Shift    string          `json:"shift,omitempty"`
	StartsAt time.Time       `json:"starts_at"`
	EndsAt   time.Time       `json:"ends_at"`
	Periods  []roster.Period `json:"periods"`
}

// Store is the gorm-backed roster repository.
type Store struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates a store. bus may be nil.
func New(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// ControllerID returns the stable id used for a controller known only by name.
func ControllerID(name string) string {
	key := strings.ToUpper(strings.Join(strings.Fields(name), " "))
	return uuid.NewSHA1(controllerNamespace, []byte(key)).String()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// LoadRoster returns the roster and all its periods.
func (s *Store) LoadRoster(ctx context.Context, rosterID string) (*Snapshot, error) {
	var r models.Roster
	err := s.db.WithContext(ctx).Where("id = ?", rosterID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, rosterID)
	}
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", rosterID, err)
	}

	var rows []models.DutyPeriod
	if err := s.db.WithContext(ctx).
		Preload("Controller").
		Preload("WorkArea").
		Where("roster_id = ?", rosterID).
		Order("starts_at ASC, controller_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load periods of roster %s: %w", rosterID, err)
	}

	snap := &Snapshot{
		RosterID: r.ID,
		Unit:     r.Unit,
		Date:     r.Date.UTC(),
		Shift:    string(r.Shift),
		StartsAt: r.StartsAt.UTC(),
		EndsAt:   r.EndsAt.UTC(),
		Periods:  make([]roster.Period, 0, len(rows)),
	}
	for _, row := range rows {
		snap.Periods = append(snap.Periods, toPeriod(row))
	}
	return snap, nil
}

// LatestRosterFor returns the most recent roster the controller is on.
func (s *Store) LatestRosterFor(ctx context.Context, controllerID string) (*Snapshot, error) {
	var r models.Roster
	res := s.db.WithContext(ctx).
		Model(&models.Roster{}).
		Select("rosters.id").
		Joins("JOIN duty_periods ON duty_periods.roster_id = rosters.id").
		Where("duty_periods.controller_id = ?", controllerID).
		Order("rosters.date DESC, rosters.starts_at DESC").
		Limit(1).
		Find(&r)
	if res.Error != nil {
		return nil, fmt.Errorf("find latest roster for %s: %w", controllerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: no roster lists controller %s", ErrRosterNotFound, controllerID)
	}
	return s.LoadRoster(ctx, r.ID)
}

// SaveSnapshot persists the snapshot, replacing any periods previously stored
// for the same roster, and returns the roster id.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) (string, error) {
	if snap == nil || len(snap.Periods) == 0 {
		return "", ErrEmptySnapshot
	}
	if err := roster.Validate(snap.Periods); err != nil {
		return "", err
	}

	r := models.Roster{
		ID:       snap.RosterID,
		Unit:     strings.ToUpper(snap.Unit),
		Date:     snap.Date.UTC(),
		Shift:    models.ShiftType(snap.Shift),
		StartsAt: snap.StartsAt.UTC(),
		EndsAt:   snap.EndsAt.UTC(),
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() {
		r.StartsAt, r.EndsAt = span(snap.Periods)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit", "date", "shift", "starts_at", "ends_at", "updated_at"}),
		}).Create(&r).Error; err != nil {
			return fmt.Errorf("save roster: %w", err)
		}

		controllers, err := saveControllers(tx, snap.Periods)
		if err != nil {
			return err
		}
		areas, err := saveWorkAreas(tx, snap.Periods)
		if err != nil {
			return err
		}

		if err := tx.Where("roster_id = ?", r.ID).Delete(&models.DutyPeriod{}).Error; err != nil {
			return fmt.Errorf("clear previous periods: %w", err)
		}

		rows := make([]models.DutyPeriod, 0, len(snap.Periods))
		for _, p := range snap.Periods {
			row := models.DutyPeriod{
				RosterID:     r.ID,
				ControllerID: controllers[p.Controller.ID],
				StartsAt:     p.Start.UTC(),
				EndsAt:       p.End.UTC(),
				Activity:     string(p.Code),
			}
			if p.IsRest() {
				row.Activity = string(activity.Rest)
			} else {
				id := areas[p.WorkArea]
				row.WorkAreaID = &id
			}
			rows = append(rows, row)
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("create periods: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("roster_id", r.ID).
		Str("unit", r.Unit).
		Int("periods", len(snap.Periods)).
		Msg("roster saved")
	s.bus.Publish(events.EventRosterImported, events.Payload{
		"roster_id": r.ID,
		"unit":      r.Unit,
		"periods":   len(snap.Periods),
	})
	return r.ID, nil
}

// saveControllers upserts every controller referenced by the periods and
// maps the snapshot's controller ids to stored ids.
func saveControllers(tx *gorm.DB, periods []roster.Period) (map[string]string, error) {
	ids := make(map[string]string)
	for _, p := range periods {
		if _, ok := ids[p.Controller.ID]; ok {
			continue
		}
		id := p.Controller.ID
		if _, err := uuid.Parse(id); err != nil {
			id = ControllerID(p.Controller.Name)
		}
		first, last := splitName(p.Controller.Name)
		c := models.Controller{ID: id, FirstName: first, LastName: last}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "updated_at"}),
		}).Create(&c).Error; err != nil {
			return nil, fmt.Errorf("save controller %q: %w", p.Controller.Name, err)
		}
		ids[p.Controller.ID] = id
	}
	return ids, nil
}

// saveWorkAreas finds or creates each work-area by name.
func saveWorkAreas(tx *gorm.DB, periods []roster.Period) (map[string]string, error) {
	ids := make(map[string]string)
	for _, p := range periods {
		if p.IsRest() {
			continue
		}
		if _, ok := ids[p.WorkArea]; ok {
			continue
		}
		var wa models.WorkArea
		if err := tx.Where(models.WorkArea{Name: p.WorkArea}).FirstOrCreate(&wa).Error; err != nil {
			return nil, fmt.Errorf("save work area %q: %w", p.WorkArea, err)
		}
		ids[p.WorkArea] = wa.ID
	}
	return ids, nil
}

func toPeriod(row models.DutyPeriod) roster.Period {
	p := roster.Period{
		ID:         row.ID,
		Controller: roster.Controller{ID: row.ControllerID},
		Start:      row.StartsAt.UTC(),
		End:        row.EndsAt.UTC(),
		Code:       activity.Code(row.Activity),
	}
	if row.Controller != nil {
		p.Controller.Name = row.Controller.DisplayName()
	}
	if row.WorkArea != nil {
		p.WorkArea = row.WorkArea.Name
	}
	return p
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// span returns the earliest start and latest end of the periods.
func span(periods []roster.Period) (time.Time, time.Time) {
	start, end := periods[0].Start, periods[0].End
	for _, p := range periods[1:] {
		if p.Start.Before(start) {
			start = p.Start
		}
		if p.End.After(end) {
			end = p.End
		}
	}
	return start.UTC(), end.UTC()
}
