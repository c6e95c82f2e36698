package reliefweb

import (
	"bytes"
	"encoding/json"
)

// ReliefWeb API response types. Several fields appear either as a single
// object or as a list depending on the API version, so they decode into
// slices either way.

type response struct {
	Data []item `json:"data"`
}

type item struct {
	ID     textValue `json:"id"`
	Fields fields    `json:"fields"`
}

type fields struct {
	ID          textValue  `json:"id"`
	Name        string     `json:"name"`
	Description stringList `json:"description"`
	Country     []country  `json:"country"`
	Date        dates      `json:"date"`
	Type        typeList   `json:"type"`
}

type dates struct {
	Created string `json:"created"`
}

type country struct {
	Name     string       `json:"name"`
	Location locationList `json:"location"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type named struct {
	Name string `json:"name"`
}

// textValue accepts a JSON string or number.
type textValue string

func (t *textValue) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = textValue(n.String())
	return nil
}

// stringList accepts a JSON string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// locationList accepts a single location object or a list of them.
type locationList []location

func (l *locationList) UnmarshalJSON(b []byte) error {
	return decodeOneOrMany(b, (*[]location)(l))
}

// typeList accepts a single {name} object, a list of them, or a bare string.
type typeList []named

func (l *typeList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = typeList{{Name: s}}
		return nil
	}
	return decodeOneOrMany(b, (*[]named)(l))
}

func (l typeList) names() []string {
	out := make([]string, 0, len(l))
	for _, n := range l {
		out = append(out, n.Name)
	}
	return out
}

func decodeOneOrMany[T any](b []byte, dst *[]T) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, dst)
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*dst = []T{one}
	return nil
}
