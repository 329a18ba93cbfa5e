// Package store provides local persistence for labelkit. Editor state
// (annotation records, drafts, settings, last-selected tools) lives in a
// single embedded bbolt database; submitted results additionally land in a
// queryable sqlite database (see results.go).
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// Bucket names used by the editor state store.
var (
	bucketAnnotations = []byte("annotations")
	bucketDrafts      = []byte("drafts")
	bucketKV          = []byte("kv")
)

// Store is the bbolt-backed editor state store.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) the state database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAnnotations, bucketDrafts, bucketKV} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutAnnotation writes an annotation record, keyed by id.
func (s *Store) PutAnnotation(rec *models.AnnotationRecord) error {
	rec.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal annotation record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAnnotations).Put([]byte(rec.ID), data)
	})
}

// GetAnnotation reads one annotation record; nil when absent.
func (s *Store) GetAnnotation(id string) (*models.AnnotationRecord, error) {
	var rec *models.AnnotationRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAnnotations).Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = &models.AnnotationRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("unmarshal annotation record: %w", err)
		}
		return nil
	})
	return rec, err
}

// ListAnnotations returns every stored annotation record.
func (s *Store) ListAnnotations() ([]*models.AnnotationRecord, error) {
	var out []*models.AnnotationRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAnnotations).ForEach(func(_, v []byte) error {
			var rec models.AnnotationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal annotation record: %w", err)
			}
			out = append(out, &rec)
			return nil
		})
	})
	return out, err
}

// DeleteAnnotation removes a record and its draft.
func (s *Store) DeleteAnnotation(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketAnnotations).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketDrafts).Delete([]byte(id))
	})
}

// SaveDraft overwrites the draft payload for an annotation. Autosave calls
// this on every debounced flush.
func (s *Store) SaveDraft(annotationID string, payload []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Put([]byte(annotationID), payload)
	})
}

// GetDraft reads the stored draft; nil when none exists.
func (s *Store) GetDraft(annotationID string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketDrafts).Get([]byte(annotationID)); data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}

// DeleteDraft removes the draft after a successful submit.
func (s *Store) DeleteDraft(annotationID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Delete([]byte(annotationID))
	})
}

// LoadSettings reads editor settings from the fixed key, falling back to
// defaults when nothing is stored yet.
func (s *Store) LoadSettings() (models.EditorSettings, error) {
	settings := models.DefaultEditorSettings()
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketKV).Get([]byte(models.SettingsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return models.DefaultEditorSettings(), fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists editor settings under the fixed key.
func (s *Store) SaveSettings(settings models.EditorSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(models.SettingsKey), data)
	})
}

// SetSelectedTool remembers the last tool used on an object.
func (s *Store) SetSelectedTool(objectName, tool string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(models.SelectedToolKey(objectName)), []byte(tool))
	})
}

// SelectedTool returns the remembered tool for an object. Callers must
// ignore tools the current config no longer declares.
func (s *Store) SelectedTool(objectName string) (string, bool) {
	var tool string
	s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketKV).Get([]byte(models.SelectedToolKey(objectName))); data != nil {
			tool = string(data)
		}
		return nil
	})
	return tool, tool != ""
}
