package configfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cookiesync/internal/engine"
)

// WriteReason classifies why a config write failed.
type WriteReason string

const (
	ReasonNotFound         WriteReason = "not_found"
	ReasonParseError       WriteReason = "parse_error"
	ReasonPermissionDenied WriteReason = "permission_denied"
)

// WriteError is returned for any failure to read, parse or persist a
// platform configuration artifact.
type WriteError struct {
	Reason WriteReason
	Path   string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("config write %s (%s): %v", e.Reason, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer owns the on-disk representation of platform configs. It edits
// exactly one scalar in the yaml document and leaves every other node,
// comment and ordering intact.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

// Apply sets the platform's cookie field to value. It returns false with a
// nil error when the persisted value is already identical. Writes are
// all-or-nothing: the artifact is replaced atomically or not at all.
func (w *Writer) Apply(platform engine.Platform, value string) (bool, error) {
	doc, err := loadDocument(platform.ConfigPath)
	if err != nil {
		return false, err
	}
	node, err := lookupCookieNode(doc, platform)
	if err != nil {
		return false, err
	}
	if node.Value == value {
		return false, nil
	}
	node.SetString(value)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return false, &WriteError{Reason: ReasonParseError, Path: platform.ConfigPath, Err: err}
	}
	if err := enc.Close(); err != nil {
		return false, &WriteError{Reason: ReasonParseError, Path: platform.ConfigPath, Err: err}
	}

	if err := replaceFile(platform.ConfigPath, buf.Bytes()); err != nil {
		reason := ReasonNotFound
		if os.IsPermission(err) {
			reason = ReasonPermissionDenied
		}
		return false, &WriteError{Reason: reason, Path: platform.ConfigPath, Err: err}
	}
	return true, nil
}

// Current reads the cookie value currently persisted for the platform.
func (w *Writer) Current(platform engine.Platform) (string, error) {
	doc, err := loadDocument(platform.ConfigPath)
	if err != nil {
		return "", err
	}
	node, err := lookupCookieNode(doc, platform)
	if err != nil {
		return "", err
	}
	return node.Value, nil
}

func loadDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := ReasonNotFound
		if os.IsPermission(err) {
			reason = ReasonPermissionDenied
		}
		return nil, &WriteError{Reason: reason, Path: path, Err: err}
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &WriteError{Reason: ReasonParseError, Path: path, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &WriteError{Reason: ReasonParseError, Path: path, Err: fmt.Errorf("empty document")}
	}
	return &doc, nil
}

func lookupCookieNode(doc *yaml.Node, platform engine.Platform) (*yaml.Node, error) {
	node := doc.Content[0]
	for _, key := range strings.Split(platform.CookieKey, ".") {
		next, ok := childValue(node, key)
		if !ok {
			return nil, &WriteError{
				Reason: ReasonParseError,
				Path:   platform.ConfigPath,
				Err:    fmt.Errorf("cookie key %q not found", platform.CookieKey),
			}
		}
		node = next
	}
	if node.Kind != yaml.ScalarNode {
		return nil, &WriteError{
			Reason: ReasonParseError,
			Path:   platform.ConfigPath,
			Err:    fmt.Errorf("cookie key %q is not a scalar", platform.CookieKey),
		}
	}
	return node, nil
}

func childValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}
	return nil, false
}

// replaceFile swaps in the new content via a temp file in the same
// directory so a crash mid-write never corrupts the artifact.
func replaceFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cookiesync-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
