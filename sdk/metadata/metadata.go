// Package metadata decodes the base64 JSON data URIs returned by the token
// contracts' contractURI and tokenURI methods.
package metadata

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// JSONMime is the media type used by the token contracts.
const JSONMime = "application/json"

var (
	errNoComma     = errors.New("missing comma separating header and payload")
	errInvalidUTF8 = errors.New("payload is not valid UTF-8")
)

// DecodeError reports a data URI that could not be turned into JSON.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("metadata: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ContractMetadata is the collection-level document behind contractURI.
type ContractMetadata struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	Image        string `json:"image,omitempty"`
	ExternalLink string `json:"external_link,omitempty"`
}

// Attribute is one trait of a token.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// TokenMetadata is the per-token document behind tokenURI.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Attribute returns the value of the named trait.
func (m TokenMetadata) Attribute(trait string) (any, bool) {
	for _, attr := range m.Attributes {
		if attr.TraitType == trait {
			return attr.Value, true
		}
	}
	return nil, false
}

// Decode splits uri on its first comma, base64-decodes the payload, checks it
// is UTF-8 and unmarshals the JSON into out, which must be a non-nil pointer.
// out is replaced only when the whole document decodes.
func Decode(uri string, out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return &DecodeError{Stage: "json", Err: &json.InvalidUnmarshalError{Type: reflect.TypeOf(out)}}
	}
	raw, err := Payload(uri)
	if err != nil {
		return err
	}
	// json.Unmarshal keeps filling fields past a type mismatch.
	tmp := reflect.New(dst.Type().Elem())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		return &DecodeError{Stage: "json", Err: err}
	}
	dst.Elem().Set(tmp.Elem())
	return nil
}

// DecodeMap decodes uri into a generic JSON object.
func DecodeMap(uri string) (map[string]any, error) {
	raw, err := Payload(uri)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	return out, nil
}

// Payload returns the decoded bytes of a base64 data URI.
func Payload(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, &DecodeError{Stage: "split", Err: errNoComma}
	}
	raw, err := decodeBase64(strings.TrimSpace(payload))
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Stage: "utf8", Err: errInvalidUTF8}
	}
	return raw, nil
}

// EncodeDataURI renders payload as a base64 data URI of the given media type.
func EncodeDataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

// EncodeJSON marshals v and wraps it in an application/json data URI.
func EncodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("metadata: marshal: %w", err)
	}
	return EncodeDataURI(JSONMime, raw), nil
}

func decodeBase64(payload string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}
