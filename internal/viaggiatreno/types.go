package viaggiatreno

import "encoding/json"

// RawDeparture represents one departure as returned by the Viaggiatreno
// API, both in departure board lists and in single train status responses.
// Numeric fields use json.Number because the upstream payloads are not
// consistent about types.
type RawDeparture struct {
	TrainNumber     json.Number `json:"numeroTreno"`
	Delay           json.Number `json:"ritardo"`
	Provision       json.Number `json:"provvedimento"`
	Destination     string      `json:"destinazione"`
	DestinationCode string      `json:"codDestinazione"`
	OriginCode      string      `json:"codOrigine"`
	DepartureTime   int64       `json:"orarioPartenza"`
	Category        string      `json:"categoria"`
}

// TrainCode returns the train number as the string form used as history key.
func (d *RawDeparture) TrainCode() string {
	return d.TrainNumber.String()
}
