package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"backend/internal/config"
	"backend/internal/providers/minio"
	"backend/internal/providers/redis"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pageHintKeyPrefix = "board:pageinfo:"
	feedCachePrefix   = "board:feed:"
	feedCacheTTL      = 5 * time.Minute

	latestFeedSize   = 5
	popularFeedSize  = 5
	topLikedFeedSize = 8
	guideFeedSize    = 4
)

// BlobStore is the object-store surface the engine composes with the
// relational gateway. Keys follow prj3/board/{boardId}/{fileName}.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
	Bucket() string
}

// OrphanRecorder persists blob keys that may have outlived their DB rows,
// for the background reaper to clean up.
type OrphanRecorder interface {
	Enqueue(bucket, key string) error
}

type Service interface {
	Validate(b *Board) bool
	Add(ctx context.Context, b *Board, files []Upload) error
	List(ctx context.Context, p ListParams) (*ListResponse, error)
	ReportList(ctx context.Context, p ListParams) (*ListResponse, error)
	GetByBoardIDAndMemberID(ctx context.Context, id int64, memberID *int64) (*DetailResponse, error)
	Edit(ctx context.Context, b *Board, removeFileList []string, addFileList []Upload) error
	Delete(ctx context.Context, id int64) error
	HasAccess(id, memberID int64) bool
	IsLoggedIn(memberID int64) bool
	Like(ctx context.Context, boardID, memberID int64) (*LikeView, error)
	AddReport(ctx context.Context, report *BoardReport) (bool, error)
	ReportContent(ctx context.Context, boardID int64) (*ReportContentResponse, error)
	GetLatestBoards(ctx context.Context) ([]*Board, error)
	GetPopularBoards(ctx context.Context) ([]*Board, error)
	GetTopLikedImages(ctx context.Context) ([]*ImageFeedItem, error)
	GetGuideBoards(ctx context.Context) ([]*ImageFeedItem, error)
}

type service struct {
	repo          Repository
	blob          BlobStore
	redisP        *redis.RedisProvider
	orphans       OrphanRecorder
	logger        *zap.SugaredLogger
	srcPrefix     string
	adminMemberID int64
}

func NewService(
	repo Repository,
	blob BlobStore,
	redisP *redis.RedisProvider,
	orphans OrphanRecorder,
	logger *zap.Logger,
	cfg *config.Config,
) Service {
	return &service{
		repo:          repo,
		blob:          blob,
		redisP:        redisP,
		orphans:       orphans,
		logger:        logger.Sugar(),
		srcPrefix:     cfg.SrcPrefix,
		adminMemberID: cfg.AdminMemberID,
	}
}

func blobKey(boardID int64, name string) string {
	return fmt.Sprintf("prj3/board/%d/%s", boardID, name)
}

func (s *service) fileURL(boardID int64, name string) string {
	return fmt.Sprintf("%sboard/%d/%s", s.srcPrefix, boardID, name)
}

func (s *service) Validate(b *Board) bool {
	return strings.TrimSpace(b.Title) != "" && strings.TrimSpace(b.Content) != ""
}

func (s *service) IsLoggedIn(memberID int64) bool {
	return memberID > 0
}

// Add inserts the board and its file records in one transaction, uploading
// each blob as its record is written. The DB is the source of truth for
// which files exist; keys uploaded before a rollback are queued as orphans.
func (s *service) Add(ctx context.Context, b *Board, files []Upload) error {
	if len(files) > 0 && s.blob == nil {
		return ErrBlobUnavailable
	}

	var uploadedKeys []string
	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.InsertBoard(b); err != nil {
			return fmt.Errorf("failed to insert board: %w", err)
		}
		for _, f := range files {
			if err := tx.InsertFileName(b.ID, f.Name); err != nil {
				return fmt.Errorf("failed to insert file name %s: %w", f.Name, err)
			}
			key := blobKey(b.ID, f.Name)
			if err := s.blob.Put(ctx, key, f.Reader, f.Size, minio.ContentTypeFor(f.Name)); err != nil {
				return err
			}
			uploadedKeys = append(uploadedKeys, key)
		}
		return nil
	})
	if err != nil {
		s.recordOrphans(uploadedKeys)
		return err
	}

	s.invalidateFeedCache(ctx)
	return nil
}

// GetByBoardIDAndMemberID bumps the view counter (read-then-write, racy by
// contract) and returns the board with its files and like state.
func (s *service) GetByBoardIDAndMemberID(ctx context.Context, id int64, memberID *int64) (*DetailResponse, error) {
	views, err := s.repo.SelectViewsByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(id, views); err != nil {
		return nil, err
	}

	b, err := s.repo.SelectByID(id)
	if err != nil {
		return nil, err
	}

	names, err := s.repo.SelectFileNames(id)
	if err != nil {
		return nil, err
	}
	b.FileList = make([]FileView, 0, len(names))
	for _, name := range names {
		b.FileList = append(b.FileList, FileView{Name: name, URL: s.fileURL(id, name)})
	}

	like := LikeView{}
	if memberID != nil {
		liked, err := s.repo.HasLike(id, *memberID)
		if err != nil {
			return nil, err
		}
		like.Like = liked
	}
	count, err := s.repo.CountLikes(id)
	if err != nil {
		return nil, err
	}
	like.Count = count

	return &DetailResponse{Board: b, Like: like}, nil
}

// Edit applies removals first (blob before DB row, so no row ever points
// at a missing blob), then additions, then the scalar update.
func (s *service) Edit(ctx context.Context, b *Board, removeFileList []string, addFileList []Upload) error {
	if (len(removeFileList) > 0 || len(addFileList) > 0) && s.blob == nil {
		return ErrBlobUnavailable
	}

	var uploadedKeys []string
	err := s.repo.Transaction(func(tx Repository) error {
		for _, name := range removeFileList {
			if err := s.blob.Remove(ctx, blobKey(b.ID, name)); err != nil {
				return err
			}
			if err := tx.DeleteFileByName(b.ID, name); err != nil {
				return fmt.Errorf("failed to delete file record %s: %w", name, err)
			}
		}

		if len(addFileList) > 0 {
			existing, err := tx.SelectFileNames(b.ID)
			if err != nil {
				return err
			}
			known := make(map[string]bool, len(existing))
			for _, name := range existing {
				known[name] = true
			}
			for _, f := range addFileList {
				if !known[f.Name] {
					if err := tx.InsertFileName(b.ID, f.Name); err != nil {
						return fmt.Errorf("failed to insert file name %s: %w", f.Name, err)
					}
					known[f.Name] = true
				}
				// Overwrites silently on key collision.
				key := blobKey(b.ID, f.Name)
				if err := s.blob.Put(ctx, key, f.Reader, f.Size, minio.ContentTypeFor(f.Name)); err != nil {
					return err
				}
				uploadedKeys = append(uploadedKeys, key)
			}
		}

		return tx.UpdateBoard(b)
	})
	if err != nil {
		s.recordOrphans(uploadedKeys)
		return err
	}

	s.invalidateFeedCache(ctx)
	return nil
}

// Delete cascades: blobs, file rows, likes, comments, then the board row.
// Blob deletes of missing keys are non-fatal and every per-row delete is
// idempotent, so a partial failure can be retried.
func (s *service) Delete(ctx context.Context, id int64) error {
	names, err := s.repo.SelectFileNames(id)
	if err != nil {
		return err
	}

	if s.blob != nil {
		for _, name := range names {
			key := blobKey(id, name)
			if err := s.blob.Remove(ctx, key); err != nil {
				s.logger.Warnw("Failed to delete blob, queuing orphan", "key", key, "error", err)
				s.recordOrphans([]string{key})
			}
		}
		// Catch objects under the board's directory that have no file row.
		prefix := fmt.Sprintf("prj3/board/%d/", id)
		if err := s.blob.RemovePrefix(ctx, prefix); err != nil {
			s.logger.Warnw("Failed to sweep blob prefix", "prefix", prefix, "error", err)
		}
	}

	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.DeleteFilesByBoardID(id); err != nil {
			return err
		}
		if err := tx.DeleteLikesByBoardID(id); err != nil {
			return err
		}
		if err := tx.DeleteCommentsByBoardID(id); err != nil {
			return err
		}
		return tx.DeleteByID(id)
	})
	if err != nil {
		return err
	}

	s.invalidateFeedCache(ctx)
	return nil
}

func (s *service) HasAccess(id, memberID int64) bool {
	b, err := s.repo.SelectByID(id)
	if err != nil {
		return false
	}
	return b.MemberID == memberID || memberID == s.adminMemberID
}

// Like flips the (board, member) row inside one transaction: delete first,
// insert when nothing was deleted. A collision with a concurrent toggler
// is retried once before surfacing.
func (s *service) Like(ctx context.Context, boardID, memberID int64) (*LikeView, error) {
	result := &LikeView{}
	toggle := func() error {
		return s.repo.Transaction(func(tx Repository) error {
			removed, err := tx.DeleteLike(boardID, memberID)
			if err != nil {
				return err
			}
			if removed == 0 {
				if err := tx.InsertLike(boardID, memberID); err != nil {
					return err
				}
				result.Like = true
			} else {
				result.Like = false
			}
			return nil
		})
	}

	if err := toggle(); err != nil {
		s.logger.Warnw("Like toggle collided, retrying once",
			"board_id", boardID, "member_id", memberID, "error", err)
		if err := toggle(); err != nil {
			return nil, err
		}
	}

	count, err := s.repo.CountLikes(boardID)
	if err != nil {
		return nil, err
	}
	result.Count = count
	return result, nil
}

// AddReport inserts at most one report per (board, member). Returns false
// when that pair already reported.
func (s *service) AddReport(ctx context.Context, report *BoardReport) (bool, error) {
	accepted := false
	err := s.repo.Transaction(func(tx Repository) error {
		count, err := tx.CountReportsByPrimaryKey(report.BoardID, report.MemberID)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.InsertReport(report); err != nil {
			return err
		}
		accepted = true
		return nil
	})
	return accepted, err
}

func (s *service) List(ctx context.Context, p ListParams) (*ListResponse, error) {
	return s.list(ctx, p, false)
}

func (s *service) ReportList(ctx context.Context, p ListParams) (*ListResponse, error) {
	return s.list(ctx, p, true)
}

func (s *service) list(ctx context.Context, p ListParams, reportedOnly bool) (*ListResponse, error) {
	if p.Page <= 0 {
		return nil, ErrInvalidPage
	}

	f := Filter{BoardType: p.BoardType, SearchType: p.SearchType, Keyword: p.Keyword}

	count, err := s.repo.CountBoards(f, reportedOnly)
	if err != nil {
		return nil, err
	}

	offset, info := buildPageInfo(p.Page, p.PageAmount, p.OffsetReset, count)
	s.touchPageHint(ctx, p.SessionKey, offset)

	boards, err := s.repo.SelectPage(f, offset, p.PageAmount, reportedOnly)
	if err != nil {
		return nil, err
	}

	for _, b := range boards {
		name, err := s.repo.FirstImage(b.ID)
		if err != nil {
			s.logger.Warnw("Failed to load thumbnail", "board_id", b.ID, "error", err)
			continue
		}
		if name != "" {
			url := s.fileURL(b.ID, name)
			b.ThumbnailURL = url
			b.FileList = []FileView{{Name: name, URL: url}}
		}
	}

	return &ListResponse{PageInfo: info, BoardList: boards}, nil
}

// touchPageHint reads and rewrites the per-session offset hint. The value
// is advisory and never feeds the offset computation; last writer wins.
func (s *service) touchPageHint(ctx context.Context, sessionKey string, offset int) {
	if s.redisP == nil || sessionKey == "" {
		return
	}
	key := pageHintKeyPrefix + sessionKey
	if err := s.redisP.Get(ctx, key).Err(); err != nil && err != goredis.Nil {
		s.logger.Debugw("Failed to read page hint", "key", key, "error", err)
	}
	if err := s.redisP.Set(ctx, key, offset, 0).Err(); err != nil {
		s.logger.Debugw("Failed to store page hint", "key", key, "error", err)
	}
}

func (s *service) ReportContent(ctx context.Context, boardID int64) (*ReportContentResponse, error) {
	b, err := s.repo.SelectByID(boardID)
	if err != nil {
		return nil, err
	}
	reports, err := s.repo.SelectReportsByBoardID(boardID)
	if err != nil {
		return nil, err
	}
	return &ReportContentResponse{Board: b, Reports: reports}, nil
}

func (s *service) GetLatestBoards(ctx context.Context) ([]*Board, error) {
	cacheKey := feedCachePrefix + "latest"
	if boards := boardsFromCache(s, ctx, cacheKey); boards != nil {
		return boards, nil
	}

	boards, err := s.repo.SelectLatest(latestFeedSize)
	if err != nil {
		return nil, err
	}
	s.cacheFeed(ctx, cacheKey, boards)
	return boards, nil
}

func (s *service) GetPopularBoards(ctx context.Context) ([]*Board, error) {
	cacheKey := feedCachePrefix + "popular"
	if boards := boardsFromCache(s, ctx, cacheKey); boards != nil {
		return boards, nil
	}

	boards, err := s.repo.SelectPopular(popularFeedSize)
	if err != nil {
		return nil, err
	}
	s.cacheFeed(ctx, cacheKey, boards)
	return boards, nil
}

func (s *service) GetTopLikedImages(ctx context.Context) ([]*ImageFeedItem, error) {
	cacheKey := feedCachePrefix + "topLikedImages"
	if items := imagesFromCache(s, ctx, cacheKey); items != nil {
		return items, nil
	}

	items, err := s.repo.SelectTopLikedImages(topLikedFeedSize)
	if err != nil {
		return nil, err
	}
	s.rewriteImageURLs(items)
	s.cacheFeed(ctx, cacheKey, items)
	return items, nil
}

func (s *service) GetGuideBoards(ctx context.Context) ([]*ImageFeedItem, error) {
	cacheKey := feedCachePrefix + "guide"
	if items := imagesFromCache(s, ctx, cacheKey); items != nil {
		return items, nil
	}

	items, err := s.repo.SelectGuideBoards(guideFeedSize)
	if err != nil {
		return nil, err
	}
	s.rewriteImageURLs(items)
	s.cacheFeed(ctx, cacheKey, items)
	return items, nil
}

// rewriteImageURLs turns stored file names into public URLs on feed rows.
func (s *service) rewriteImageURLs(items []*ImageFeedItem) {
	for _, item := range items {
		item.ImageURL = s.fileURL(item.ID, item.ImageURL)
	}
}

func boardsFromCache(s *service, ctx context.Context, cacheKey string) []*Board {
	if s.redisP == nil {
		return nil
	}
	data, err := s.redisP.Get(ctx, cacheKey).Result()
	if err != nil || data == "" {
		return nil
	}
	var boards []*Board
	if json.Unmarshal([]byte(data), &boards) != nil {
		return nil
	}
	return boards
}

func imagesFromCache(s *service, ctx context.Context, cacheKey string) []*ImageFeedItem {
	if s.redisP == nil {
		return nil
	}
	data, err := s.redisP.Get(ctx, cacheKey).Result()
	if err != nil || data == "" {
		return nil
	}
	var items []*ImageFeedItem
	if json.Unmarshal([]byte(data), &items) != nil {
		return nil
	}
	return items
}

func (s *service) cacheFeed(ctx context.Context, cacheKey string, value interface{}) {
	if s.redisP == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.redisP.Set(ctx, cacheKey, data, feedCacheTTL)
}

func (s *service) invalidateFeedCache(ctx context.Context) {
	if s.redisP == nil {
		return
	}
	pattern := feedCachePrefix + "*"
	var cursor uint64
	for {
		keys, cur, err := s.redisP.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			s.logger.Warnw("Redis scan failed during feed cache invalidation", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := s.redisP.Del(ctx, keys...).Err(); err != nil {
				s.logger.Warnw("Failed to delete feed cache keys", "error", err, "keys", keys)
			}
		}
		if cur == 0 {
			break
		}
		cursor = cur
	}
}

func (s *service) recordOrphans(keys []string) {
	if s.orphans == nil || s.blob == nil {
		return
	}
	for _, key := range keys {
		if err := s.orphans.Enqueue(s.blob.Bucket(), key); err != nil {
			s.logger.Errorw("Failed to queue orphan blob", "key", key, "error", err)
		} else {
			s.logger.Warnw("Queued orphan blob for cleanup", "key", key)
		}
	}
}
