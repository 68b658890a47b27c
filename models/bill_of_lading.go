package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type BillOfLading struct {
	ID          int64  `json:"id" db:"id"`
	DriverName  string `json:"driver_name" db:"driver_name"`
	Date        Date   `json:"date" db:"date"`
	WorkOrderNo string `json:"work_order_no" db:"work_order_no"`

	BrokerName    string `json:"broker_name" db:"broker_name"`
	BrokerAddress string `json:"broker_address" db:"broker_address"`
	BrokerPhone   string `json:"broker_phone" db:"broker_phone"`

	PickupName    string `json:"pickup_name" db:"pickup_name"`
	PickupAddress string `json:"pickup_address" db:"pickup_address"`
	PickupCity    string `json:"pickup_city" db:"pickup_city"`
	PickupState   string `json:"pickup_state" db:"pickup_state"`
	PickupZip     string `json:"pickup_zip" db:"pickup_zip"`
	PickupPhone   string `json:"pickup_phone" db:"pickup_phone"`

	DeliveryName    string `json:"delivery_name" db:"delivery_name"`
	DeliveryAddress string `json:"delivery_address" db:"delivery_address"`
	DeliveryCity    string `json:"delivery_city" db:"delivery_city"`
	DeliveryState   string `json:"delivery_state" db:"delivery_state"`
	DeliveryZip     string `json:"delivery_zip" db:"delivery_zip"`
	DeliveryPhone   string `json:"delivery_phone" db:"delivery_phone"`

	ConditionCodes ConditionCodes `json:"condition_codes" db:"condition_codes"`
	Remarks        string         `json:"remarks" db:"remarks"`

	PickupAgentName   string `json:"pickup_agent_name" db:"pickup_agent_name"`
	PickupSignature   string `json:"pickup_signature" db:"pickup_signature"`
	PickupDate        Date   `json:"pickup_date" db:"pickup_date"`
	DeliveryAgentName string `json:"delivery_agent_name" db:"delivery_agent_name"`
	DeliverySignature string `json:"delivery_signature" db:"delivery_signature"`
	DeliveryDate      Date   `json:"delivery_date" db:"delivery_date"`
	ReceiverAgentName string `json:"receiver_agent_name" db:"receiver_agent_name"`
	ReceiverSignature string `json:"receiver_signature" db:"receiver_signature"`
	ReceiverDate      Date   `json:"receiver_date" db:"receiver_date"`

	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at" db:"updated_at"`

	Vehicles []BOLVehicle `json:"vehicles"`

	// Read-side annotation from the payment aggregate; never stored.
	TotalCollected *decimal.Decimal `json:"total_collected,omitempty"`
	DueAmount      *decimal.Decimal `json:"due_amount,omitempty"`
}

// Annotate sets the derived payment fields from a collected sum.
func (b *BillOfLading) Annotate(collected decimal.Decimal) {
	due := DueAmount(b.TotalAmount, collected)
	b.TotalCollected = &collected
	b.DueAmount = &due
}

// BOLInput is the writable surface of a bill of lading. Anything not listed
// here (id, total_amount, timestamps) is owned by the server.
type BOLInput struct {
	DriverName  string `json:"driver_name" validate:"required,max=255"`
	Date        Date   `json:"date"`
	WorkOrderNo string `json:"work_order_no" validate:"max=100"`

	BrokerName    string `json:"broker_name" validate:"max=255"`
	BrokerAddress string `json:"broker_address"`
	BrokerPhone   string `json:"broker_phone" validate:"max=50"`

	PickupName    string `json:"pickup_name" validate:"max=255"`
	PickupAddress string `json:"pickup_address"`
	PickupCity    string `json:"pickup_city" validate:"max=100"`
	PickupState   string `json:"pickup_state" validate:"max=50"`
	PickupZip     string `json:"pickup_zip" validate:"max=20"`
	PickupPhone   string `json:"pickup_phone" validate:"max=50"`

	DeliveryName    string `json:"delivery_name" validate:"max=255"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryCity    string `json:"delivery_city" validate:"max=100"`
	DeliveryState   string `json:"delivery_state" validate:"max=50"`
	DeliveryZip     string `json:"delivery_zip" validate:"max=20"`
	DeliveryPhone   string `json:"delivery_phone" validate:"max=50"`

	ConditionCodes ConditionCodes `json:"condition_codes"`
	Remarks        string         `json:"remarks"`

	PickupAgentName   string `json:"pickup_agent_name" validate:"max=255"`
	PickupSignature   string `json:"pickup_signature"`
	PickupDate        Date   `json:"pickup_date"`
	DeliveryAgentName string `json:"delivery_agent_name" validate:"max=255"`
	DeliverySignature string `json:"delivery_signature"`
	DeliveryDate      Date   `json:"delivery_date"`
	ReceiverAgentName string `json:"receiver_agent_name" validate:"max=255"`
	ReceiverSignature string `json:"receiver_signature"`
	ReceiverDate      Date   `json:"receiver_date"`

	Vehicles []VehicleInput `json:"vehicles" validate:"dive"`
}

// ApplyTo overwrites every writable field of b. Vehicles are replaced
// wholesale.
func (in *BOLInput) ApplyTo(b *BillOfLading) {
	b.DriverName = strings.TrimSpace(in.DriverName)
	b.Date = in.Date
	b.WorkOrderNo = strings.TrimSpace(in.WorkOrderNo)
	b.BrokerName = in.BrokerName
	b.BrokerAddress = in.BrokerAddress
	b.BrokerPhone = in.BrokerPhone
	b.PickupName = in.PickupName
	b.PickupAddress = in.PickupAddress
	b.PickupCity = in.PickupCity
	b.PickupState = in.PickupState
	b.PickupZip = in.PickupZip
	b.PickupPhone = in.PickupPhone
	b.DeliveryName = in.DeliveryName
	b.DeliveryAddress = in.DeliveryAddress
	b.DeliveryCity = in.DeliveryCity
	b.DeliveryState = in.DeliveryState
	b.DeliveryZip = in.DeliveryZip
	b.DeliveryPhone = in.DeliveryPhone
	b.ConditionCodes = in.ConditionCodes.Normalize()
	b.Remarks = in.Remarks
	b.PickupAgentName = in.PickupAgentName
	b.PickupSignature = in.PickupSignature
	b.PickupDate = in.PickupDate
	b.DeliveryAgentName = in.DeliveryAgentName
	b.DeliverySignature = in.DeliverySignature
	b.DeliveryDate = in.DeliveryDate
	b.ReceiverAgentName = in.ReceiverAgentName
	b.ReceiverSignature = in.ReceiverSignature
	b.ReceiverDate = in.ReceiverDate

	b.Vehicles = make([]BOLVehicle, 0, len(in.Vehicles))
	for _, v := range in.Vehicles {
		b.Vehicles = append(b.Vehicles, BOLVehicle{
			Year:    v.Year,
			Make:    v.Make,
			Model:   v.Model,
			VIN:     v.VIN,
			Mileage: v.Mileage,
			Price:   v.Price,
		})
	}
}

// ConditionCodes is a free-form tag list. Older clients send a single
// comma separated string, newer ones a JSON array; both decode here.
type ConditionCodes []string

func (c ConditionCodes) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}

func (c *ConditionCodes) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*c = ConditionCodes(list).Normalize()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ConditionCodes(strings.Split(s, ",")).Normalize()
	return nil
}

// Normalize trims every tag and drops empty ones.
func (c ConditionCodes) Normalize() ConditionCodes {
	out := make(ConditionCodes, 0, len(c))
	for _, code := range c {
		if code = strings.TrimSpace(code); code != "" {
			out = append(out, code)
		}
	}
	return out
}

func (c ConditionCodes) Value() (driver.Value, error) {
	return pq.StringArray(c.Normalize()).Value()
}

func (c *ConditionCodes) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*c = ConditionCodes(arr)
	return nil
}
