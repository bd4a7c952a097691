package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"webstarter-backend/internal/model"
	"webstarter-backend/pkg/logger"
)

const (
	indexFile      = "conversations.json"
	headersDir     = "conversations"
	entriesDir     = "entries"
	backupDir      = "backup"
	jsonExt        = ".json"
	defaultCacheSz = 32
)

// DiskStorage writes one header file and one entries file per conversation,
// plus an index for listing. Every write goes through a temp file and rename.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Conversation
	cacheSize int
}

type conversationIndex struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var _ Backuper = (*DiskStorage)(nil)

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSz
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Conversation),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	for _, dir := range []string{
		d.dataDir,
		filepath.Join(d.dataDir, headersDir),
		filepath.Join(d.dataDir, entriesDir),
		filepath.Join(d.dataDir, backupDir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	if _, err := os.Stat(d.indexPath()); os.IsNotExist(err) {
		if err := d.writeJSON(d.indexPath(), []*conversationIndex{}); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	logger.Infof("Conversation storage ready at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Conversation)
	return nil
}

func (d *DiskStorage) Save(conv *model.Conversation) error {
	if conv == nil || !validID(conv.ID) {
		return ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := cloneConversation(conv)
	if err := d.writeJSON(d.headerPath(cp.ID), header(cp)); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.writeJSON(d.entriesPath(cp.ID), cp.Entries); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.rebuildIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[cp.ID] = cp
	d.evictCache()
	return nil
}

func (d *DiskStorage) Get(id string) (*model.Conversation, error) {
	if !validID(id) {
		return nil, ErrConversationNotFound
	}

	d.mu.RLock()
	conv, cached := d.cache[id]
	d.mu.RUnlock()
	if cached {
		return cloneConversation(conv), nil
	}

	conv, err := d.load(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	d.mu.Lock()
	d.cache[id] = conv
	d.evictCache()
	d.mu.Unlock()

	return cloneConversation(conv), nil
}

func (d *DiskStorage) Delete(id string) error {
	if !validID(id) {
		return ErrConversationNotFound
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.headerPath(id)); os.IsNotExist(err) {
		return ErrConversationNotFound
	}
	if err := os.Remove(d.headerPath(id)); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Remove(d.entriesPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, id)
	return d.rebuildIndex()
}

func (d *DiskStorage) List() ([]*model.Conversation, error) {
	d.mu.RLock()
	data, err := os.ReadFile(d.indexPath())
	d.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var indexes []*conversationIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	out := make([]*model.Conversation, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, &model.Conversation{
			ID:        idx.ID,
			Title:     idx.Title,
			Model:     idx.Model,
			CreatedAt: idx.CreatedAt,
			UpdatedAt: idx.UpdatedAt,
		})
	}
	sortByUpdated(out)
	return out, nil
}

// Backup copies every stored file into backup/backup_<unix>/ and returns
// that directory.
func (d *DiskStorage) Backup() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dst := filepath.Join(d.dataDir, backupDir, fmt.Sprintf("backup_%d", time.Now().UnixNano()))
	for _, dir := range []string{headersDir, entriesDir} {
		if err := copyDir(filepath.Join(d.dataDir, dir), filepath.Join(dst, dir)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}
	if err := copyFile(d.indexPath(), filepath.Join(dst, indexFile)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", dst)
	return dst, nil
}

func (d *DiskStorage) load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(d.headerPath(id))
	if err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	conv.Entries = []model.ConversationEntry{}
	data, err = os.ReadFile(d.entriesPath(id))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	default:
		if err := json.Unmarshal(data, &conv.Entries); err != nil {
			logger.Errorf("Failed to load entries for conversation %s: %v", id, err)
			conv.Entries = []model.ConversationEntry{}
		}
	}
	return &conv, nil
}

// rebuildIndex rescans the header files. Callers hold d.mu.
func (d *DiskStorage) rebuildIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, headersDir))
	if err != nil {
		return err
	}

	indexes := make([]*conversationIndex, 0, len(files))
	for _, file := range files {
		if filepath.Ext(file.Name()) != jsonExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.dataDir, headersDir, file.Name()))
		if err != nil {
			logger.Errorf("Failed to read %s for index update: %v", file.Name(), err)
			continue
		}
		var idx conversationIndex
		if err := json.Unmarshal(data, &idx); err != nil {
			logger.Errorf("Skipping corrupt conversation header %s: %v", file.Name(), err)
			continue
		}
		indexes = append(indexes, &idx)
	}

	return d.writeJSON(d.indexPath(), indexes)
}

// evictCache drops the least recently updated conversations. Callers hold d.mu.
func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	convs := make([]*model.Conversation, 0, len(d.cache))
	for _, conv := range d.cache {
		convs = append(convs, conv)
	}
	sortByUpdated(convs)
	for _, conv := range convs[d.cacheSize:] {
		delete(d.cache, conv.ID)
	}
}

func (d *DiskStorage) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, indexFile)
}

func (d *DiskStorage) headerPath(id string) string {
	return filepath.Join(d.dataDir, headersDir, id+jsonExt)
}

func (d *DiskStorage) entriesPath(id string) string {
	return filepath.Join(d.dataDir, entriesDir, id+jsonExt)
}

// validID keeps ids inside the data directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
