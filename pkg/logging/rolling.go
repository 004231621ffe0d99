package logging

import (
	"fmt"
	"os"
)

// rollingFile is a size-capped log file. When a write would exceed max MB the
// file is shifted to path.1 (path.1 to path.2 and so on, up to backups).
type rollingFile struct {
	path    string
	max     int
	backups int
	file    *os.File
	size    int64
}

func newRollingFile(path string, maxMB, backups int) (*rollingFile, error) {
	if backups < 1 {
		backups = 1
	}
	r := &rollingFile{path: path, max: maxMB, backups: backups}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rollingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.file, r.size = f, info.Size()
	return nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	if r.max > 0 && r.size > 0 && r.size+int64(len(p)) > int64(r.max)*1024*1024 {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rollingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	for i := r.backups - 1; i >= 1; i-- {
		os.Rename(backupName(r.path, i), backupName(r.path, i+1))
	}
	if err := os.Rename(r.path, backupName(r.path, 1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return r.open()
}

func (r *rollingFile) Sync() error {
	return r.file.Sync()
}

func (r *rollingFile) Close() error {
	return r.file.Close()
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
