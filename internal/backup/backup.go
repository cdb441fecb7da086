package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/storage"
)

const (
	// BackupFileSuffix is the suffix for backup files
	BackupFileSuffix = ".json"
	timestampFormat  = "20060102-150405"
	archiveVersion   = 1
)

var ErrInvalidBackup = errors.New("backup file is corrupted or invalid")

// managedNamespaces are always present in an archive, as "[]" when absent,
// so restoring one replaces them even if they were empty at backup time.
var managedNamespaces = []string{constants.HabitsNamespace, constants.TasksNamespace}

var emptyCollection = json.RawMessage("[]")

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// archive is the on-disk backup: every collection blob keyed by namespace.
type archive struct {
	Version     int                        `json:"version"`
	CreatedAt   time.Time                  `json:"createdAt"`
	Source      string                     `json:"source"`
	Collections map[string]json.RawMessage `json:"collections"`
}

// Manager snapshots a store into timestamped archives and restores them.
// Archives are backend-neutral, so a snapshot taken from the JSON files can be
// restored into sqlite or postgres.
type Manager struct {
	store     *storage.Store
	backupDir string
	now       func() time.Time
}

func NewManager(store *storage.Store, configDir string) *Manager {
	return &Manager{
		store:     store,
		backupDir: filepath.Join(configDir, constants.BackupDirName),
		now:       time.Now,
	}
}

func (m *Manager) BackupDir() string {
	return m.backupDir
}

// CreateBackup writes a new archive and prunes old ones beyond MaxBackups.
func (m *Manager) CreateBackup(ctx context.Context) (string, error) {
	return m.createBackup(ctx, false)
}

// skipRotation keeps the pre-restore snapshot from evicting the archive being restored
func (m *Manager) createBackup(ctx context.Context, skipRotation bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	path, err := m.uniquePath()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	logger.Info("Created backup", "path", path, "collections", len(snapshot.Collections))

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "error", err)
		}
	}
	return path, nil
}

func (m *Manager) snapshot(ctx context.Context) (*archive, error) {
	namespaces, err := m.store.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	a := &archive{
		Version:     archiveVersion,
		CreatedAt:   m.now().UTC(),
		Source:      m.store.Location(),
		Collections: make(map[string]json.RawMessage, len(namespaces)),
	}
	for _, ns := range namespaces {
		data, ok, err := m.store.ReadRaw(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ns, err)
		}
		if !ok {
			continue
		}
		if !json.Valid(data) {
			logger.Warn("Skipping undecodable collection in backup", "collection", ns)
			continue
		}
		a.Collections[ns] = json.RawMessage(data)
	}
	for _, ns := range managedNamespaces {
		if _, ok, err := m.store.ReadRaw(ctx, ns); err == nil && !ok {
			a.Collections[ns] = emptyCollection
		}
	}
	return a, nil
}

func (m *Manager) uniquePath() (string, error) {
	base := constants.BackupFilePrefix + m.now().Format(timestampFormat)
	path := filepath.Join(m.backupDir, base+BackupFileSuffix)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, counter, BackupFileSuffix))
	}
}

// ListBackups returns all archives, newest first.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, BackupFileSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), BackupFileSuffix)
		// Drop the collision counter: YYYYMMDD-HHMMSS-N
		if parts := strings.Split(stamp, "-"); len(parts) == 3 {
			stamp = parts[0] + "-" + parts[1]
		}
		timestamp, err := time.ParseInLocation(timestampFormat, stamp, time.Local)
		if err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, name),
			Timestamp: timestamp,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// RestoreBackup replaces every collection in the archive, and empties habits
// or tasks the archive does not carry. The current state is
// archived first so a restore can itself be undone.
func (m *Manager) RestoreBackup(ctx context.Context, backupPath string) (string, error) {
	a, err := readArchive(backupPath)
	if err != nil {
		return "", err
	}

	previous, err := m.createBackup(ctx, true)
	if err != nil {
		return "", fmt.Errorf("failed to back up current data before restore: %w", err)
	}

	// Archives written before every managed namespace was included still
	// have to replace those collections.
	for _, ns := range managedNamespaces {
		if _, ok := a.Collections[ns]; !ok {
			a.Collections[ns] = emptyCollection
		}
	}

	for _, ns := range sortedNamespaces(a.Collections) {
		if err := m.store.WriteRaw(ctx, ns, a.Collections[ns]); err != nil {
			return previous, fmt.Errorf("failed to restore %s: %w", ns, err)
		}
	}
	logger.Info("Restored backup", "path", backupPath, "collections", len(a.Collections))
	return previous, nil
}

// readArchive loads and checks an archive: known version and every collection
// a JSON array.
func readArchive(path string) (*archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	var a archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if a.Version != archiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, a.Version)
	}
	if a.Collections == nil {
		a.Collections = map[string]json.RawMessage{}
	}
	for ns, raw := range a.Collections {
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, fmt.Errorf("%w: collection %s is not a list", ErrInvalidBackup, ns)
		}
	}
	return &a, nil
}

func sortedNamespaces(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
