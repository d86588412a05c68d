package usecase

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
)

// normalizeEntries validates an intake batch and returns a cleaned copy with
// trimmed identifiers and date-only expirations.
func normalizeEntries(entries []dto.IntakeEntry) ([]dto.IntakeEntry, error) {
	if len(entries) == 0 {
		return nil, apperror.Validation("at least one vial is required")
	}
	if len(entries) > dto.MaxIntakeEntries {
		return nil, apperror.Validation(fmt.Sprintf("at most %d entries per intake", dto.MaxIntakeEntries))
	}

	out := make([]dto.IntakeEntry, 0, len(entries))
	for i, e := range entries {
		e.ProductID = strings.TrimSpace(e.ProductID)
		e.LotNumber = strings.TrimSpace(e.LotNumber)
		switch {
		case e.ProductID == "":
			return nil, entryError(i, "product is required")
		case e.LotNumber == "":
			return nil, entryError(i, "lot number is required")
		case utf8.RuneCountInString(e.LotNumber) > dto.MaxLotNumber:
			return nil, entryError(i, fmt.Sprintf("lot number must be at most %d characters", dto.MaxLotNumber))
		case e.ExpirationDate.IsZero():
			return nil, entryError(i, "expiration date is required")
		case e.Quantity < 1 || e.Quantity > dto.MaxIntakeQuantity:
			return nil, entryError(i, fmt.Sprintf("quantity must be between 1 and %d", dto.MaxIntakeQuantity))
		}
		if e.LocationID != nil {
			id := strings.TrimSpace(*e.LocationID)
			if id == "" {
				e.LocationID = nil
			} else {
				e.LocationID = &id
			}
		}
		y, m, d := e.ExpirationDate.Date()
		e.ExpirationDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		out = append(out, e)
	}
	return out, nil
}

func entryError(i int, msg string) error {
	return apperror.Validation(fmt.Sprintf("vials[%d]: %s", i, msg))
}

func distinctIDs(entries []dto.IntakeEntry) (productIDs, locationIDs []string) {
	seenProducts := map[string]bool{}
	seenLocations := map[string]bool{}
	for _, e := range entries {
		if !seenProducts[e.ProductID] {
			seenProducts[e.ProductID] = true
			productIDs = append(productIDs, e.ProductID)
		}
		if e.LocationID != nil && !seenLocations[*e.LocationID] {
			seenLocations[*e.LocationID] = true
			locationIDs = append(locationIDs, *e.LocationID)
		}
	}
	return productIDs, locationIDs
}

func totalQuantity(entries []dto.IntakeEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}
