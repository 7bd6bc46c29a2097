package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
)

type runDownload struct {
	runID     string
	dir       string
	expiresAt time.Time
}

// downloadStore 下载令牌 → 运行输出目录；令牌在有效期内可重复使用
type downloadStore struct {
	mu    sync.Mutex
	items map[string]runDownload
}

func newDownloadStore() *downloadStore {
	return &downloadStore{
		items: make(map[string]runDownload),
	}
}

func (s *downloadStore) put(runID, dir string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = newRandomToken(24)
	s.items[token] = runDownload{
		runID:     runID,
		dir:       dir,
		expiresAt: time.Now().Add(ttl),
	}
	return token
}

func (s *downloadStore) get(token string) (runDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		return runDownload{}, false
	}
	if time.Now().After(v.expiresAt) {
		delete(s.items, token)
		return runDownload{}, false
	}
	return v, true
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// downloadable 允许下载的文件名及其 MIME 类型
var downloadable = map[string]string{
	exporter.FileAlertCSV:  "text/csv; charset=utf-8",
	exporter.FileAlertXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	exporter.FileSwapLog:   "text/csv; charset=utf-8",
	exporter.FilePlan:      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// downloadLinks 为一次运行的全部输出生成下载地址
func (h *Handler) downloadLinks(runID, dir string, files exporter.Files) map[string]string {
	token := h.downloads.put(runID, dir, h.ttl)
	links := make(map[string]string, 4)
	for _, name := range files.List() {
		links[name] = fmt.Sprintf("/api/download/%s/%s", token, name)
	}
	return links
}

// Download 下载运行输出文件
// GET /api/download/:token/:file
func (h *Handler) Download(c *gin.Context) {
	token := c.Param("token")
	name := c.Param("file")
	if token == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token 或文件名"})
		return
	}

	contentType, ok := downloadable[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "未知文件"})
		return
	}

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	path := filepath.Join(item.dir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "输出文件不存在"})
		return
	}

	c.Header("Content-Disposition", buildContentDisposition(item.runID, name))
	c.Header("Content-Type", contentType)
	c.File(path)
}

// buildContentDisposition 下载文件名带运行 ID 前缀，兼容非 ASCII 文件名
func buildContentDisposition(runID, name string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	filename := name
	if short != "" {
		ext := filepath.Ext(name)
		filename = strings.TrimSuffix(name, ext) + "_" + short + ext
	}
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename))
}
