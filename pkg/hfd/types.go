package hfd

import "strings"

// Credentials are the per-owner values the carrier expects with every call.
type Credentials struct {
	ClientNumber     string
	Token            string
	ShipmentTypeCode string
	CargoTypeCode    string
}

// Missing lists the credential fields that are blank.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.ClientNumber) == "" {
		missing = append(missing, "client_number")
	}
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(c.ShipmentTypeCode) == "" {
		missing = append(missing, "shipment_type_code")
	}
	if strings.TrimSpace(c.CargoTypeCode) == "" {
		missing = append(missing, "cargo_type_code")
	}
	return missing
}

// Party is one end of a shipment.
type Party struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
	Country string `json:"country,omitempty"`
}

// ShipmentRequest is the carrier-neutral description of a parcel.
type ShipmentRequest struct {
	Reference1  string `json:"reference_1"`
	Reference2  string `json:"reference_2"`
	Sender      Party  `json:"sender"`
	Recipient   Party  `json:"recipient"`
	WeightGrams int    `json:"weight_grams"`
	Pieces      int    `json:"pieces"`
	Remarks     string `json:"remarks"`
}

// ShipmentResult is the normalized carrier answer to a create call.
type ShipmentResult struct {
	ShipmentNumber         string         `json:"shipment_number"`
	TrackingNumber         string         `json:"tracking_number,omitempty"`
	Reference1             string         `json:"reference_1,omitempty"`
	Reference2             string         `json:"reference_2,omitempty"`
	DeliveryLine           string         `json:"delivery_line,omitempty"`
	DeliveryArea           string         `json:"delivery_area,omitempty"`
	ExistingShipmentNumber string         `json:"existing_shipment_number,omitempty"`
	SortingCode            string         `json:"sorting_code,omitempty"`
	PickupCode             string         `json:"pickup_code,omitempty"`
	Raw                    map[string]any `json:"-"`
}

// StatusResult is the normalized answer to a shipment status lookup.
type StatusResult struct {
	ShipmentNumber string         `json:"shipment_number"`
	Status         string         `json:"status"`
	Description    string         `json:"description,omitempty"`
	Raw            map[string]any `json:"-"`
}

// wirePayload is the JSON body the carrier API accepts.
type wirePayload struct {
	ClientNumber     string `json:"client_number"`
	Token            string `json:"token"`
	ShipmentTypeCode string `json:"shipment_type_code,omitempty"`
	CargoTypeHaloch  string `json:"cargo_type_haloch,omitempty"`
	ReferenceNum1    string `json:"reference_num_1,omitempty"`
	ReferenceNum2    string `json:"reference_num_2,omitempty"`
	SenderName       string `json:"sender_name,omitempty"`
	SenderAddress    string `json:"sender_address,omitempty"`
	SenderCity       string `json:"sender_city,omitempty"`
	SenderZip        string `json:"sender_zip,omitempty"`
	SenderPhone      string `json:"sender_phone,omitempty"`
	RecipientName    string `json:"recipient_name,omitempty"`
	RecipientAddress string `json:"recipient_address,omitempty"`
	RecipientCity    string `json:"recipient_city,omitempty"`
	RecipientZip     string `json:"recipient_zip,omitempty"`
	RecipientPhone   string `json:"recipient_phone,omitempty"`
	Weight           int    `json:"weight,omitempty"`
	Pieces           int    `json:"pieces,omitempty"`
	Remarks          string `json:"remarks,omitempty"`
	ShipmentNumber   string `json:"shipment_number,omitempty"`
}

func newWirePayload(creds Credentials, req ShipmentRequest) wirePayload {
	return wirePayload{
		ClientNumber:     creds.ClientNumber,
		Token:            creds.Token,
		ShipmentTypeCode: creds.ShipmentTypeCode,
		CargoTypeHaloch:  creds.CargoTypeCode,
		ReferenceNum1:    req.Reference1,
		ReferenceNum2:    req.Reference2,
		SenderName:       req.Sender.Name,
		SenderAddress:    req.Sender.Street,
		SenderCity:       req.Sender.City,
		SenderZip:        req.Sender.Zip,
		SenderPhone:      req.Sender.Phone,
		RecipientName:    req.Recipient.Name,
		RecipientAddress: req.Recipient.Street,
		RecipientCity:    req.Recipient.City,
		RecipientZip:     req.Recipient.Zip,
		RecipientPhone:   req.Recipient.Phone,
		Weight:           req.WeightGrams,
		Pieces:           req.Pieces,
		Remarks:          req.Remarks,
	}
}
