/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/jtoledo1974/atcapp/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Controller{},
		&models.WorkArea{},
		&models.Roster{},
		&models.DutyPeriod{},
	); err != nil {
		return err
	}

	if err := normalizeWorkAreaNames(database); err != nil {
		return err
	}
	if err := applyPostgresDutyOverlapGuard(database); err != nil {
		return err
	}
	return nil
}

// normalizeWorkAreaNames upper-cases sector names imported by hand so that
// grouping compares them exactly.
func normalizeWorkAreaNames(database *gorm.DB) error {
	if err := database.Exec("UPDATE work_areas SET name = UPPER(TRIM(name)) WHERE name <> UPPER(TRIM(name))").Error; err != nil {
		return fmt.Errorf("normalize work area names: %w", err)
	}
	return nil
}

// applyPostgresDutyOverlapGuard rejects a duty period that overlaps another
// period of the same controller in the same roster.
func applyPostgresDutyOverlapGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_duty_period_overlap()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.ends_at <= NEW.starts_at THEN
    RAISE EXCEPTION 'duty period end must be after start'
      USING ERRCODE = '23514';
  END IF;

  IF EXISTS (
    SELECT 1
    FROM duty_periods dp
    WHERE dp.roster_id = NEW.roster_id
      AND dp.controller_id = NEW.controller_id
      AND dp.id <> NEW.id
      AND tstzrange(dp.starts_at, dp.ends_at, '[)') && tstzrange(NEW.starts_at, NEW.ends_at, '[)')
  ) THEN
    RAISE EXCEPTION 'overlapping duty periods for controller %', NEW.controller_id
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_duty_period_overlap ON duty_periods;

CREATE TRIGGER trg_prevent_duty_period_overlap
BEFORE INSERT OR UPDATE OF roster_id, controller_id, starts_at, ends_at
ON duty_periods
FOR EACH ROW
EXECUTE FUNCTION prevent_duty_period_overlap();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres duty overlap guard: %w", err)
	}
	return nil
}
