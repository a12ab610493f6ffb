package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/sync/singleflight"
)

const (
	metadataCacheSize = 512
	searchTimeout     = 3 * time.Second
	resolveTimeout    = 30 * time.Second
)

// Archive is the optional offsite store for cached audio files.
type Archive interface {
	Store(ctx context.Context, key, path string) error
	Fetch(ctx context.Context, key, path string) error
}

// SearchResult is one candidate track from the search providers.
type SearchResult struct {
	VideoID string
	Title   string
	URL     string
}

// resolved is the cached outcome of a successful resolution.
type resolved struct {
	videoID   string
	title     string
	duration  time.Duration
	streamURL string
	filename  string
}

// Resolver turns queries and URLs into playable songs, backed by an
// in-process LRU, the songs table, the on-disk audio cache, and
// yt-dlp. Concurrent resolutions of the same video are deduplicated.
type Resolver struct {
	songs    repositories.SongRepository
	cache    *lru.Cache
	sf       singleflight.Group
	cacheDir string
	archive  Archive

	dlMu     sync.Mutex
	download map[string]struct{}
}

func NewResolver(songs repositories.SongRepository, cacheDir string, archive Archive) *Resolver {
	cache, _ := lru.New(metadataCacheSize)
	return &Resolver{
		songs:    songs,
		cache:    cache,
		cacheDir: cacheDir,
		archive:  archive,
		download: make(map[string]struct{}),
	}
}

// Resolve turns a query or URL into a Song owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, query string, requester snowflake.ID, requesterName string) (*Song, error) {
	videoID := ExtractVideoID(query)
	if videoID == "" {
		results, err := r.Search(ctx, query, 1)
		if err != nil {
			return nil, &ResolveError{Query: query, Err: err}
		}
		if len(results) == 0 {
			return nil, &ResolveError{Query: query, Err: errors.New("no results")}
		}
		videoID = results[0].VideoID
	}

	v, err, _ := r.sf.Do(videoID, func() (interface{}, error) {
		return r.resolve(ctx, videoID)
	})
	if err != nil {
		return nil, &ResolveError{Query: query, Err: err}
	}

	res := v.(*resolved)
	song := &Song{
		VideoID:       res.videoID,
		Title:         res.title,
		Duration:      res.duration,
		StreamURL:     res.streamURL,
		Requester:     requester,
		RequesterName: requesterName,
	}
	if res.filename != "" {
		song.Path = filepath.Join(r.cacheDir, res.filename)
	}
	if record, err := r.songs.GetByVideoID(ctx, videoID); err == nil {
		song.Record = record
	}
	return song, nil
}

func (r *Resolver) resolve(ctx context.Context, videoID string) (*resolved, error) {
	if v, ok := r.cache.Get(videoID); ok {
		res := v.(*resolved)
		if res.filename == "" || r.cachedFileExists(res.filename) {
			return res, nil
		}
		r.cache.Remove(videoID)
	}

	// A previous run may already hold the file; the songs table knows.
	if record, err := r.songs.GetByVideoID(ctx, videoID); err == nil && record.Filename != "" {
		res := &resolved{
			videoID:  videoID,
			title:    record.Title,
			duration: time.Duration(record.DurationSecs) * time.Second,
			filename: record.Filename,
		}
		if r.cachedFileExists(record.Filename) {
			r.cache.Add(videoID, res)
			return res, nil
		}
		if r.archive != nil {
			if err := r.archive.Fetch(ctx, record.Filename, filepath.Join(r.cacheDir, record.Filename)); err == nil {
				r.cache.Add(videoID, res)
				return res, nil
			}
		}
	}

	res, err := r.probe(ctx, videoID)
	if err != nil {
		return nil, err
	}

	r.cache.Add(videoID, res)
	go r.downloadAndRegister(res)
	return res, nil
}

// probe asks yt-dlp for title, duration and a direct audio URL.
func (r *Resolver) probe(ctx context.Context, videoID string) (*resolved, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		Print("%(id)s\t%(title)s\t%(duration)s\t%(url)s")

	out, err := cmd.Run(ctx,
		"--no-playlist",
		"-f", "bestaudio",
		"https://www.youtube.com/watch?v="+videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(out.Stdout), "\t")
	if len(parts) < 4 {
		return nil, fmt.Errorf("unexpected yt-dlp output: %q", out.Stdout)
	}

	secs, _ := strconv.ParseFloat(parts[2], 64)
	return &resolved{
		videoID:   parts[0],
		title:     parts[1],
		duration:  time.Duration(secs) * time.Second,
		streamURL: parts[3],
	}, nil
}

// downloadAndRegister caches the audio file on disk, upserts the song
// row and pushes the file to the archive. Runs in the background after
// the first resolution; playback uses the stream URL until the file
// lands.
func (r *Resolver) downloadAndRegister(res *resolved) {
	r.dlMu.Lock()
	if _, busy := r.download[res.videoID]; busy {
		r.dlMu.Unlock()
		return
	}
	r.download[res.videoID] = struct{}{}
	r.dlMu.Unlock()

	defer func() {
		r.dlMu.Lock()
		delete(r.download, res.videoID)
		r.dlMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	template := filepath.Join(r.cacheDir, "%(id)s.%(ext)s")
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		Print("%(filename)s")

	out, err := cmd.Run(ctx,
		"--no-playlist",
		"--no-simulate",
		"--no-overwrites",
		"-f", "bestaudio",
		"-o", template,
		"https://www.youtube.com/watch?v="+res.videoID,
	)
	if err != nil {
		slog.Error("Audio cache download failed",
			slog.String("type", "player"),
			slog.String("video_id", res.videoID),
			slog.Any("error", err))
		return
	}

	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	filename := filepath.Base(strings.TrimSpace(lines[len(lines)-1]))
	if filename == "" || filename == "." {
		return
	}
	res.filename = filename
	r.cache.Add(res.videoID, res)

	record := &models.Song{
		VideoID:      res.videoID,
		Title:        res.title,
		DurationSecs: int(res.duration / time.Second),
		Filename:     filename,
	}
	if err := r.songs.Upsert(ctx, record); err != nil {
		slog.Error("Failed to register cached song",
			slog.String("type", "db"),
			slog.String("video_id", res.videoID),
			slog.Any("error", err))
	}

	if r.archive != nil {
		if err := r.archive.Store(ctx, filename, filepath.Join(r.cacheDir, filename)); err != nil {
			slog.Warn("Failed to archive cached song",
				slog.String("type", "player"),
				slog.String("video_id", res.videoID),
				slog.Any("error", err))
		}
	}
}

func (r *Resolver) cachedFileExists(filename string) bool {
	_, err := os.Stat(filepath.Join(r.cacheDir, filename))
	return err == nil
}

// Search queries YouTube and YouTube Music in parallel and merges the
// results, YouTube first.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		yt, ytm []SearchResult
		seen    = make(map[string]bool)
		wg      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		c := ytsearch.NewClient(nil)
		res, err := c.Search(ctx, query)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, v := range res.Results {
			if v.VideoID == "" || seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			yt = append(yt, SearchResult{
				VideoID: v.VideoID,
				Title:   v.Title,
				URL:     "https://www.youtube.com/watch?v=" + v.VideoID,
			})
		}
	}()
	go func() {
		defer wg.Done()
		s := ytmusic.TrackSearch(query)
		res, err := s.Next()
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, v := range res.Tracks {
			if v.VideoID == "" || seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			title := v.Title
			if len(v.Artists) > 0 {
				title += " - " + v.Artists[0].Name
			}
			ytm = append(ytm, SearchResult{
				VideoID: v.VideoID,
				Title:   title,
				URL:     "https://music.youtube.com/watch?v=" + v.VideoID,
			})
		}
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	results := append(yt, ytm...)
	if len(results) == 0 {
		return nil, errors.New("no results from any provider")
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ExtractVideoID pulls the 11-character video ID out of the common
// YouTube URL shapes. Returns "" for non-URL queries.
func ExtractVideoID(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	var id string
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		id = strings.TrimPrefix(u.Path, "/")
	case strings.HasSuffix(u.Host, "youtube.com"):
		if u.Path == "/watch" {
			id = u.Query().Get("v")
		} else if strings.HasPrefix(u.Path, "/shorts/") {
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}

	if len(id) != 11 {
		return ""
	}
	return id
}

// SongPlayRecorder adapts the song repository to the player's
// PlayRecorder hook.
type SongPlayRecorder struct {
	Repo repositories.SongRepository
}

func (r SongPlayRecorder) RecordPlay(ctx context.Context, song *Song) {
	if err := r.Repo.IncrementPlays(ctx, song.VideoID); err != nil {
		slog.Error("Failed to record play",
			slog.String("type", "db"),
			slog.String("video_id", song.VideoID),
			slog.Any("error", err))
	}
}
