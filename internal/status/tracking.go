package status

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/internal/ledger"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

// DefaultCodePrefix starts every generated tracking code.
const DefaultCodePrefix = "TRK"

const codeLength = 10

// NewTracking is the input of CreateTracking.
type NewTracking struct {
	OrderNumber      string `json:"order_number"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	DestinationCity  string `json:"destination_city"`
	DestinationState string `json:"destination_state"`
	Location         string `json:"location,omitempty"`
	Description      string `json:"description,omitempty"`
}

// TrackingFilter narrows ListTracking. Zero fields match everything.
type TrackingFilter struct {
	Code        string
	OrderNumber string
	Status      catalog.TrackingStatus
	// Query matches customer name, email, tracking code or order number,
	// ignoring case and accents.
	Query string
}

func (f TrackingFilter) match(t schema.TrackingRecord) bool {
	if f.Code != "" && !strings.EqualFold(t.TrackingCode, f.Code) {
		return false
	}
	if f.OrderNumber != "" && t.OrderNumber != f.OrderNumber {
		return false
	}
	if f.Status != "" && t.CurrentStatus != f.Status {
		return false
	}
	if f.Query != "" {
		q := fold(f.Query)
		for _, field := range []string{t.CustomerName, t.CustomerEmail, t.TrackingCode, t.OrderNumber} {
			if strings.Contains(fold(field), q) {
				return true
			}
		}
		return false
	}
	return true
}

// fold lowercases s and strips diacritics, so "João" matches "joao".
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CreateTracking stores a new tracking record with a fresh unique code and an
// initial "posted" ledger entry.
func (s *Service) CreateTracking(in NewTracking, actor string) (schema.TrackingRecord, error) {
	if strings.TrimSpace(in.OrderNumber) == "" {
		s.push(notify.CategoryError, "Erro", "Informe o número do pedido para gerar o rastreio")
		return schema.TrackingRecord{}, ErrInvalidTracking
	}

	records, err := sdk.ReadAll[schema.TrackingRecord](s.store, schema.CollectionTracking)
	if err != nil {
		return schema.TrackingRecord{}, s.trackingFailed("create", in.OrderNumber, fmt.Errorf("read %s: %w", schema.CollectionTracking, err))
	}

	taken := make(map[string]bool, len(records))
	for _, r := range records {
		taken[r.TrackingCode] = true
	}
	code := s.newCode()
	for taken[code] {
		code = s.newCode()
	}

	rec := schema.TrackingRecord{
		ID:               uuid.NewString(),
		TrackingCode:     code,
		OrderNumber:      in.OrderNumber,
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		DestinationCity:  in.DestinationCity,
		DestinationState: in.DestinationState,
	}
	description := in.Description
	if description == "" {
		description = "Objeto postado"
	}
	entry := s.ledger.Append(&rec, string(catalog.TrackingPosted), actor,
		ledger.WithDescription(description), ledger.WithLocation(in.Location))
	rec.CreatedAt = entry.Timestamp

	records = append(records, rec)
	if err := sdk.WriteAll(s.store, schema.CollectionTracking, records); err != nil {
		return schema.TrackingRecord{}, s.trackingFailed("create", in.OrderNumber, fmt.Errorf("write %s: %w", schema.CollectionTracking, err))
	}

	s.logger.Info("tracking code generated",
		slog.String("code", code), slog.String("order", in.OrderNumber))
	s.push(notify.CategorySuccess, "Código gerado", fmt.Sprintf("Rastreio %s criado para o pedido %s", code, in.OrderNumber))
	return rec, nil
}

func (s *Service) newCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s.codePrefix + strings.ToUpper(raw[:codeLength])
}

// ListTracking returns the records matching f, in store order.
func (s *Service) ListTracking(f TrackingFilter) ([]schema.TrackingRecord, error) {
	records, err := sdk.ReadAll[schema.TrackingRecord](s.store, schema.CollectionTracking)
	if err != nil {
		return nil, err
	}
	out := make([]schema.TrackingRecord, 0, len(records))
	for _, r := range records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetTracking finds a record by id or tracking code.
func (s *Service) GetTracking(idOrCode string) (schema.TrackingRecord, bool, error) {
	records, err := sdk.ReadAll[schema.TrackingRecord](s.store, schema.CollectionTracking)
	if err != nil {
		return schema.TrackingRecord{}, false, err
	}
	for _, r := range records {
		if r.ID == idOrCode || strings.EqualFold(r.TrackingCode, idOrCode) {
			return r, true, nil
		}
	}
	return schema.TrackingRecord{}, false, nil
}

// DeleteTracking removes the record with id. It returns false when there is none.
func (s *Service) DeleteTracking(id string) (bool, error) {
	records, err := sdk.ReadAll[schema.TrackingRecord](s.store, schema.CollectionTracking)
	if err != nil {
		return false, s.trackingFailed("delete", id, fmt.Errorf("read %s: %w", schema.CollectionTracking, err))
	}

	kept := records[:0]
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		s.push(notify.CategoryError, "Erro", fmt.Sprintf("Rastreio %s não encontrado", id))
		return false, nil
	}

	if err := sdk.WriteAll(s.store, schema.CollectionTracking, kept); err != nil {
		return false, s.trackingFailed("delete", id, fmt.Errorf("write %s: %w", schema.CollectionTracking, err))
	}
	s.logger.Info("tracking record deleted", slog.String("id", id))
	s.push(notify.CategorySuccess, "Rastreio removido", fmt.Sprintf("Rastreio %s removido", id))
	return true, nil
}

// trackingFailed logs a store failure, tells the operator, and returns err.
func (s *Service) trackingFailed(op, ref string, err error) error {
	s.logger.Error("tracking "+op+" failed", slog.String("ref", ref), slog.String("error", err.Error()))
	switch op {
	case "create":
		s.push(notify.CategoryError, "Erro", fmt.Sprintf("Não foi possível gerar o rastreio do pedido %s", ref))
	default:
		s.push(notify.CategoryError, "Erro", fmt.Sprintf("Não foi possível remover o rastreio %s", ref))
	}
	return err
}
