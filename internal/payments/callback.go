package payments

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type callbackEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    json.Number     `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  json.RawMessage `json:"metadata"`
}

// chargeEvent is a validated charge.success callback.
type chargeEvent struct {
	OrderID   uuid.UUID
	Reference string
	Status    string
	Amount    int64
	Currency  string
}

// parseCallback validates the envelope. It returns a nil charge for events
// other than charge.success.
func parseCallback(payload []byte) (*chargeEvent, string, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, "", invalidPayload("payload is not valid JSON", nil)
	}
	event := strings.TrimSpace(env.Event)
	if event == "" {
		return nil, "", invalidPayload("event is required", map[string]any{"field": "event"})
	}
	if isEmptyJSON(env.Data) {
		return nil, event, invalidPayload("data is required", map[string]any{"field": "data"})
	}
	if event != EventChargeSuccess {
		return nil, event, nil
	}

	var data chargeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, event, invalidPayload("data is malformed", map[string]any{"field": "data"})
	}
	reference := strings.TrimSpace(data.Reference)
	if reference == "" {
		return nil, event, invalidPayload("data.reference is required", map[string]any{"field": "data.reference"})
	}
	orderRef := orderReferenceFrom(data.Metadata)
	if orderRef == "" {
		return nil, event, invalidPayload("data.metadata.orderReference is required", map[string]any{"field": "data.metadata.orderReference"})
	}
	orderID, ok := parseOrderReference(orderRef)
	if !ok {
		return nil, event, invalidPayload("orderReference is malformed", map[string]any{"orderReference": orderRef})
	}
	amount, _ := data.Amount.Int64()
	return &chargeEvent{
		OrderID:   orderID,
		Reference: reference,
		Status:    strings.TrimSpace(data.Status),
		Amount:    amount,
		Currency:  strings.TrimSpace(data.Currency),
	}, event, nil
}

// orderReferenceFrom reads metadata.orderReference. Paystack may send
// metadata as an object or as a JSON-encoded string.
func orderReferenceFrom(raw json.RawMessage) string {
	if isEmptyJSON(raw) {
		return ""
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil || encoded == "" {
			return ""
		}
		if err := json.Unmarshal([]byte(encoded), &meta); err != nil {
			return ""
		}
	}
	value, _ := meta["orderReference"].(string)
	return strings.TrimSpace(value)
}

func parseOrderReference(ref string) (uuid.UUID, bool) {
	rest, found := strings.CutPrefix(ref, orderReferencePrefix)
	if !found {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func invalidPayload(msg string, details map[string]any) error {
	err := pkgerrors.New(pkgerrors.CodeInvalidPayload, msg)
	if details != nil {
		err = err.WithDetails(details)
	}
	return err
}
