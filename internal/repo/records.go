package repo

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Records stores summaries and users in a database the server owns.
// It stands in for the hosted record storage when RECORDS_BACKEND is postgres or sqlite.
type Records struct {
	db *gorm.DB
}

var _ gateway.Records = (*Records)(nil)

// NewRecords creates the gorm-backed record storage.
func NewRecords(db *gorm.DB) *Records {
	return &Records{db: db}
}

// notFound mirrors the hosted not-found code so callers need one check.
func notFound(what string) error {
	return &gateway.Error{Status: http.StatusNotFound, Code: gateway.CodeNotFound, Message: what + " not found"}
}

func mapErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}

// likePattern builds a case-insensitive substring pattern.
func likePattern(term string) string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + esc + "%"
}

// columnValues converts update values into types the drivers accept.
func columnValues(updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates))
	for k, v := range updates {
		if urls, ok := v.([]string); ok {
			v = datatypes.JSONSlice[string](urls)
		}
		out[k] = v
	}
	return out
}
