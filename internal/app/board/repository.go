package board

import (
	"errors"

	"backend/internal/app/comment"

	"gorm.io/gorm"
)

// Filter narrows list queries. The TypeAll sentinel on either field and an
// empty keyword select the unfiltered path.
type Filter struct {
	BoardType  string
	SearchType string
	Keyword    string
}

// Repository is the persistence gateway for the board subsystem. Each
// method is a single statement; composition and business rules live in the
// service.
type Repository interface {
	Transaction(fn func(Repository) error) error

	InsertBoard(b *Board) error
	SelectByID(id int64) (*Board, error)
	UpdateBoard(b *Board) error
	DeleteByID(id int64) error
	SelectViewsByID(id int64) (int, error)
	IncrementViews(id int64, currentViews int) error

	CountBoards(f Filter, reportedOnly bool) (int, error)
	SelectPage(f Filter, offset, limit int, reportedOnly bool) ([]*Board, error)
	SelectLatest(limit int) ([]*Board, error)
	SelectPopular(limit int) ([]*Board, error)
	SelectTopLikedImages(limit int) ([]*ImageFeedItem, error)
	SelectGuideBoards(limit int) ([]*ImageFeedItem, error)

	InsertFileName(boardID int64, name string) error
	SelectFileNames(boardID int64) ([]string, error)
	FirstImage(boardID int64) (string, error)
	DeleteFilesByBoardID(boardID int64) error
	DeleteFileByName(boardID int64, name string) error

	InsertLike(boardID, memberID int64) error
	DeleteLike(boardID, memberID int64) (int64, error)
	HasLike(boardID, memberID int64) (bool, error)
	CountLikes(boardID int64) (int, error)
	DeleteLikesByBoardID(boardID int64) error

	InsertReport(report *BoardReport) error
	CountReportsByPrimaryKey(boardID, memberID int64) (int, error)
	SelectReportsByBoardID(boardID int64) ([]*BoardReport, error)

	DeleteCommentsByBoardID(boardID int64) error
}

type repository struct {
	db       *gorm.DB
	comments comment.Repository
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db:       db,
		comments: comment.NewRepository(db),
	}
}

// Transaction runs fn against a gateway scoped to one database
// transaction; any error rolls the whole unit back.
func (r *repository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *repository) InsertBoard(b *Board) error {
	return r.db.Create(b).Error
}

// boardQuery joins the per-board aggregates every read path needs.
func (r *repository) boardQuery() *gorm.DB {
	return r.db.Table("boards").
		Select(`
			boards.*,
			COUNT(DISTINCT bl.member_id) AS number_of_likes,
			COUNT(DISTINCT bc.id) AS number_of_comments,
			COUNT(DISTINCT bf.file_name) AS number_of_images,
			COUNT(DISTINCT br.member_id) AS number_of_reports
		`).
		Joins("LEFT JOIN board_likes bl ON bl.board_id = boards.id").
		Joins("LEFT JOIN board_comments bc ON bc.board_id = boards.id").
		Joins("LEFT JOIN board_files bf ON bf.board_id = boards.id").
		Joins("LEFT JOIN board_reports br ON br.board_id = boards.id").
		Group("boards.id")
}

func (r *repository) SelectByID(id int64) (*Board, error) {
	var b Board
	err := r.boardQuery().Where("boards.id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) UpdateBoard(b *Board) error {
	return r.db.Model(&Board{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"title":      b.Title,
			"content":    b.Content,
			"board_type": b.BoardType,
			"writer":     b.Writer,
		}).Error
}

func (r *repository) DeleteByID(id int64) error {
	return r.db.Where("id = ?", id).Delete(&Board{}).Error
}

func (r *repository) SelectViewsByID(id int64) (int, error) {
	var b Board
	err := r.db.Select("id, views").Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrBoardNotFound
	}
	if err != nil {
		return 0, err
	}
	return b.Views, nil
}

// IncrementViews writes currentViews+1, preserving the read-then-write
// counter; lost increments under concurrency are accepted.
func (r *repository) IncrementViews(id int64, currentViews int) error {
	return r.db.Model(&Board{}).
		Where("id = ?", id).
		Update("views", currentViews+1).Error
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if f.BoardType != TypeAll && f.BoardType != "" {
		query = query.Where("boards.board_type = ?", f.BoardType)
	}
	if f.Keyword != "" {
		like := "%" + f.Keyword + "%"
		switch f.SearchType {
		case "제목", "title":
			query = query.Where("boards.title ILIKE ?", like)
		case "본문", "content":
			query = query.Where("boards.content ILIKE ?", like)
		case "작성자", "writer":
			query = query.Where("boards.writer ILIKE ?", like)
		default:
			query = query.Where(
				"boards.title ILIKE ? OR boards.content ILIKE ? OR boards.writer ILIKE ?",
				like, like, like,
			)
		}
	}
	return query
}

func applyReportedOnly(query *gorm.DB, reportedOnly bool) *gorm.DB {
	if reportedOnly {
		query = query.Where("boards.id IN (SELECT DISTINCT board_id FROM board_reports)")
	}
	return query
}

func (r *repository) CountBoards(f Filter, reportedOnly bool) (int, error) {
	var count int64
	query := r.db.Model(&Board{})
	query = applyReportedOnly(query, reportedOnly)
	query = applyFilter(query, f)
	err := query.Count(&count).Error
	return int(count), err
}

func (r *repository) SelectPage(f Filter, offset, limit int, reportedOnly bool) ([]*Board, error) {
	var boards []*Board
	query := r.boardQuery()
	query = applyReportedOnly(query, reportedOnly)
	query = applyFilter(query, f)
	err := query.
		Order("boards.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&boards).Error
	return boards, err
}

func (r *repository) SelectLatest(limit int) ([]*Board, error) {
	var boards []*Board
	err := r.boardQuery().
		Order("boards.inserted DESC").
		Limit(limit).
		Find(&boards).Error
	return boards, err
}

// Popularity is a weighted sum of likes and views, newest first on ties.
func (r *repository) SelectPopular(limit int) ([]*Board, error) {
	var boards []*Board
	err := r.boardQuery().
		Order("COUNT(DISTINCT bl.member_id) * 3 + boards.views DESC, boards.inserted DESC").
		Limit(limit).
		Find(&boards).Error
	return boards, err
}

func (r *repository) SelectTopLikedImages(limit int) ([]*ImageFeedItem, error) {
	var items []*ImageFeedItem
	err := r.db.Raw(`
		SELECT boards.id,
		       boards.title,
		       MIN(bf.file_name) AS image_url,
		       (SELECT COUNT(*) FROM board_likes bl WHERE bl.board_id = boards.id) AS number_of_likes
		FROM boards
		JOIN board_files bf ON bf.board_id = boards.id
		GROUP BY boards.id
		ORDER BY number_of_likes DESC, boards.inserted DESC
		LIMIT ?
	`, limit).Scan(&items).Error
	return items, err
}

func (r *repository) SelectGuideBoards(limit int) ([]*ImageFeedItem, error) {
	var items []*ImageFeedItem
	err := r.db.Raw(`
		SELECT boards.id,
		       boards.title,
		       MIN(bf.file_name) AS image_url,
		       (SELECT COUNT(*) FROM board_likes bl WHERE bl.board_id = boards.id) AS number_of_likes
		FROM boards
		JOIN board_files bf ON bf.board_id = boards.id
		WHERE boards.board_type = ?
		GROUP BY boards.id
		ORDER BY boards.inserted DESC
		LIMIT ?
	`, TypeGuide, limit).Scan(&items).Error
	return items, err
}

func (r *repository) InsertFileName(boardID int64, name string) error {
	return r.db.Create(&BoardFile{BoardID: boardID, FileName: name}).Error
}

func (r *repository) SelectFileNames(boardID int64) ([]string, error) {
	var names []string
	err := r.db.Model(&BoardFile{}).
		Where("board_id = ?", boardID).
		Order("file_name ASC").
		Pluck("file_name", &names).Error
	return names, err
}

func (r *repository) FirstImage(boardID int64) (string, error) {
	var names []string
	err := r.db.Model(&BoardFile{}).
		Where("board_id = ?", boardID).
		Order("file_name ASC").
		Limit(1).
		Pluck("file_name", &names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

func (r *repository) DeleteFilesByBoardID(boardID int64) error {
	return r.db.Where("board_id = ?", boardID).Delete(&BoardFile{}).Error
}

func (r *repository) DeleteFileByName(boardID int64, name string) error {
	return r.db.
		Where("board_id = ? AND file_name = ?", boardID, name).
		Delete(&BoardFile{}).Error
}

func (r *repository) InsertLike(boardID, memberID int64) error {
	return r.db.Create(&BoardLike{BoardID: boardID, MemberID: memberID}).Error
}

func (r *repository) DeleteLike(boardID, memberID int64) (int64, error) {
	result := r.db.
		Where("board_id = ? AND member_id = ?", boardID, memberID).
		Delete(&BoardLike{})
	return result.RowsAffected, result.Error
}

func (r *repository) HasLike(boardID, memberID int64) (bool, error) {
	var count int64
	err := r.db.Model(&BoardLike{}).
		Where("board_id = ? AND member_id = ?", boardID, memberID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CountLikes(boardID int64) (int, error) {
	var count int64
	err := r.db.Model(&BoardLike{}).
		Where("board_id = ?", boardID).
		Count(&count).Error
	return int(count), err
}

func (r *repository) DeleteLikesByBoardID(boardID int64) error {
	return r.db.Where("board_id = ?", boardID).Delete(&BoardLike{}).Error
}

func (r *repository) InsertReport(report *BoardReport) error {
	return r.db.Create(report).Error
}

func (r *repository) CountReportsByPrimaryKey(boardID, memberID int64) (int, error) {
	var count int64
	err := r.db.Model(&BoardReport{}).
		Where("board_id = ? AND member_id = ?", boardID, memberID).
		Count(&count).Error
	return int(count), err
}

func (r *repository) SelectReportsByBoardID(boardID int64) ([]*BoardReport, error) {
	var reports []*BoardReport
	err := r.db.
		Where("board_id = ?", boardID).
		Order("inserted DESC").
		Find(&reports).Error
	return reports, err
}

func (r *repository) DeleteCommentsByBoardID(boardID int64) error {
	return r.comments.DeleteByBoardID(boardID)
}
