package models

// BOLVehicle is one vehicle listed on a bill of lading. Every field is a
// display string; price is parsed leniently when the total is derived.
type BOLVehicle struct {
	ID             int64  `json:"id" db:"id"`
	BillOfLadingID int64  `json:"bill_of_lading_id" db:"bill_of_lading_id"`
	Year           string `json:"year" db:"year"`
	Make           string `json:"make" db:"make"`
	Model          string `json:"model" db:"model"`
	VIN            string `json:"vin" db:"vin"`
	Mileage        string `json:"mileage" db:"mileage"`
	Price          string `json:"price" db:"price"`
}

type VehicleInput struct {
	Year    string `json:"year" validate:"max=10"`
	Make    string `json:"make" validate:"max=100"`
	Model   string `json:"model" validate:"max=100"`
	VIN     string `json:"vin" validate:"max=50"`
	Mileage string `json:"mileage" validate:"max=50"`
	Price   string `json:"price" validate:"max=50"`
}
