package errors

import "fmt"

// EntityLookupError is returned when the entity store fails to answer a
// lookup. It is distinct from "not found", which is not an error.
type EntityLookupError struct {
	Collection string
	Name       string
	Err        error
}

func (e *EntityLookupError) Error() string {
	return fmt.Sprintf("lookup %s %q: %v", e.Collection, e.Name, e.Err)
}

func (e *EntityLookupError) Unwrap() error {
	return e.Err
}

// EntityCreateError is returned when the entity store rejects a write
type EntityCreateError struct {
	Collection string
	Name       string
	Err        error
}

func (e *EntityCreateError) Error() string {
	return fmt.Sprintf("create %s %q: %v", e.Collection, e.Name, e.Err)
}

func (e *EntityCreateError) Unwrap() error {
	return e.Err
}

// AssetUploadError is returned when an image download or upload fails
type AssetUploadError struct {
	ImageURL string
	Field    string
	GameID   uint
	Err      error
}

func (e *AssetUploadError) Error() string {
	return fmt.Sprintf("upload %s for game %d from %s: %v", e.Field, e.GameID, e.ImageURL, e.Err)
}

func (e *AssetUploadError) Unwrap() error {
	return e.Err
}
