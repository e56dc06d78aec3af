package event

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// csvHeader is the fixed export header; rows follow registration order.
var csvHeader = []string{"student_id", "name", "email", "attended"}

// Stats aggregates registration and attendance counts for one event.
func (svc *Service) Stats(ctx context.Context, eventID int) (Stats, error) {
	evt, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return Stats{}, err
	}
	registered, err := svc.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting registrations")
	}
	attended, err := svc.repo.CountAttended(ctx, eventID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting attendance")
	}

	var rate float64
	if registered > 0 {
		rate = math.Round(float64(attended)/float64(registered)*100*100) / 100
	}
	return Stats{
		EventName:  evt.Name,
		Registered: registered,
		Attended:   attended,
		Rate:       rate,
	}, nil
}

// ExportCSV writes the attendance sheet for eventID to w: a UTF-8 CSV with
// a header row and one row per registrant, in registration order. The row
// count always equals the current registration count; attended flags
// reflect store state at call time.
func (svc *Service) ExportCSV(ctx context.Context, eventID int, w io.Writer) error {
	if _, err := svc.repo.GetEventByID(ctx, eventID); err != nil {
		return err
	}
	registrants, err := svc.repo.QueryRegistrants(ctx, eventID)
	if err != nil {
		return errors.Wrap(err, "querying registrants")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, r := range registrants {
		attended := "N"
		if r.Attended {
			attended = "Y"
		}
		row := []string{
			sanitizeCell(r.StudentID),
			sanitizeCell(r.Name),
			sanitizeCell(r.Email),
			attended,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// sanitizeCell guards against spreadsheet formula injection by prefixing
// cells that would otherwise be interpreted as formulas.
func sanitizeCell(val string) string {
	if strings.HasPrefix(val, "=") || strings.HasPrefix(val, "+") ||
		strings.HasPrefix(val, "-") || strings.HasPrefix(val, "@") {
		return "'" + val
	}
	return val
}
