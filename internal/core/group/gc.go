package group

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
)

// gcTick 执行一轮垃圾回收（循环内）
//
// 状态机：idle → scanning → deleting → idle。
// 扫描只看存储根目录下前 GCScanLimit 个目录项，
// 删除谓词批准的条目中每轮最多处理 GCDeleteLimit 个。
// 单项删除失败跳过并记录，不中断本轮其余删除。
func (m *Manager) gcTick() error {
	// 未配置存储目录时 GC 是空操作
	if m.cfg.StorageDir == "" || m.cfg.DeletionPredicate == nil {
		return nil
	}

	// scanning
	dir, err := os.Open(m.cfg.StorageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("打开存储根目录失败", "dir", m.cfg.StorageDir, "error", err)
		return err
	}
	entries, err := dir.ReadDir(m.cfg.GCScanLimit)
	_ = dir.Close()

	// deleting
	var merr error

	// ReadDir(n) 在目录读尽时返回 io.EOF；其余读错误记录并聚合，
	// 已读到的条目照常处理
	if err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("读取存储根目录失败",
			"swarm", m.swarm,
			"dir", m.cfg.StorageDir,
			"error", err)
		merr = multierr.Append(merr, err)
	}
	attempted := 0
	deleted := 0
	for _, ent := range entries {
		if attempted >= m.cfg.GCDeleteLimit {
			break
		}
		if !ent.IsDir() {
			continue
		}

		name := ent.Name()
		if !m.cfg.DeletionPredicate(name) {
			continue
		}

		attempted++
		if err := removeGroupDir(filepath.Join(m.cfg.StorageDir, name)); err != nil {
			logger.Warn("删除过期分组目录失败",
				"swarm", m.swarm,
				"dir", name,
				"error", err)
			merr = multierr.Append(merr, err)
			continue
		}
		deleted++
		m.metrics.GCDeleted()
	}

	if attempted > 0 {
		logger.Info("垃圾回收完成",
			"swarm", m.swarm,
			"attempted", attempted,
			"deleted", deleted)
	}
	return merr
}

// removeGroupDir 递归删除一个分组目录
//
// 先深度优先删除所有文件，再按字典序逆序删除子目录
// （深层路径先于其父目录被删除），最后删除目标目录本身。
// 单项失败跳过并聚合，不中断剩余删除。
func removeGroupDir(target string) error {
	var dirs []string
	var merr error

	walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			merr = multierr.Append(merr, err)
			return nil
		}
		if d.IsDir() {
			if path != target {
				dirs = append(dirs, path)
			}
			return nil
		}
		if err := os.Remove(path); err != nil {
			merr = multierr.Append(merr, err)
		}
		return nil
	})
	if walkErr != nil {
		merr = multierr.Append(merr, walkErr)
	}

	// 逆字典序保证子目录先于父目录被删除
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		if err := os.Remove(d); err != nil {
			merr = multierr.Append(merr, err)
		}
	}

	if err := os.Remove(target); err != nil {
		merr = multierr.Append(merr, err)
	}
	return merr
}
