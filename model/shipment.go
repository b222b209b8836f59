package model

// ShipmentRecord holds the shipment fields extracted from a document.
// A nil field means the value was not found; it is never an empty string.
type ShipmentRecord struct {
	ShipmentID       *string `json:"shipment_id"`
	Shipper          *string `json:"shipper"`
	Consignee        *string `json:"consignee"`
	PickupDatetime   *string `json:"pickup_datetime"`
	DeliveryDatetime *string `json:"delivery_datetime"`
	EquipmentType    *string `json:"equipment_type"`
	Mode             *string `json:"mode"`
	Rate             *string `json:"rate"`
	Currency         *string `json:"currency"`
	Weight           *string `json:"weight"`
	CarrierName      *string `json:"carrier_name"`
}

// ShipmentFields lists the JSON keys of a ShipmentRecord in schema order.
var ShipmentFields = []string{
	"shipment_id",
	"shipper",
	"consignee",
	"pickup_datetime",
	"delivery_datetime",
	"equipment_type",
	"mode",
	"rate",
	"currency",
	"weight",
	"carrier_name",
}

// Field returns a pointer to the field stored under the JSON key, or nil for unknown keys.
func (r *ShipmentRecord) Field(key string) **string {
	switch key {
	case "shipment_id":
		return &r.ShipmentID
	case "shipper":
		return &r.Shipper
	case "consignee":
		return &r.Consignee
	case "pickup_datetime":
		return &r.PickupDatetime
	case "delivery_datetime":
		return &r.DeliveryDatetime
	case "equipment_type":
		return &r.EquipmentType
	case "mode":
		return &r.Mode
	case "rate":
		return &r.Rate
	case "currency":
		return &r.Currency
	case "weight":
		return &r.Weight
	case "carrier_name":
		return &r.CarrierName
	}
	return nil
}

// Found returns the number of fields with a value.
func (r *ShipmentRecord) Found() int {
	found := 0
	for _, key := range ShipmentFields {
		if *r.Field(key) != nil {
			found++
		}
	}
	return found
}

// ExtractionStatus separates an empty document from a failed extraction.
type ExtractionStatus string

const (
	ExtractionComplete ExtractionStatus = "complete"
	ExtractionPartial  ExtractionStatus = "partial"
	ExtractionEmpty    ExtractionStatus = "empty"
	ExtractionFailed   ExtractionStatus = "failed"
)

// ExtractionResult is a shipment record plus how it was obtained.
type ExtractionResult struct {
	Record ShipmentRecord   `json:"shipment_data"`
	Status ExtractionStatus `json:"status"`
}

// StatusFor derives the status of a successfully parsed record.
func StatusFor(record ShipmentRecord) ExtractionStatus {
	switch record.Found() {
	case 0:
		return ExtractionEmpty
	case len(ShipmentFields):
		return ExtractionComplete
	default:
		return ExtractionPartial
	}
}
