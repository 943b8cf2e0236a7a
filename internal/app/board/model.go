package board

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// TypeAll is the sentinel category meaning "all", both for boardType and
// searchType filters.
const TypeAll = "전체"

// TypeGuide marks curated guide posts surfaced on the main page.
const TypeGuide = "가이드"

var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrInvalidPage     = errors.New("page must be greater than 0")
	ErrNotNumeric      = errors.New("invalid boardId or memberId format")
	ErrBlobUnavailable = errors.New("object store unavailable")
)

type Board struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Writer    string    `json:"writer" gorm:"not null"`
	MemberID  int64     `json:"memberId" gorm:"not null;index"`
	Inserted  time.Time `json:"inserted" gorm:"not null;default:CURRENT_TIMESTAMP"`
	Views     int       `json:"views" gorm:"not null;default:0"`
	BoardType string    `json:"boardType" gorm:"not null;default:'자유'"`

	// Joined aggregates, never written back.
	NumberOfReports  int `json:"numberOfReports" gorm:"->;-:migration"`
	NumberOfImages   int `json:"numberOfImages" gorm:"->;-:migration"`
	NumberOfComments int `json:"numberOfComments" gorm:"->;-:migration"`
	NumberOfLikes    int `json:"numberOfLikes" gorm:"->;-:migration"`

	ThumbnailURL string     `json:"thumbnailUrl,omitempty" gorm:"-"`
	FileList     []FileView `json:"fileList,omitempty" gorm:"-"`
}

func (Board) TableName() string {
	return "boards"
}

type BoardFile struct {
	BoardID  int64  `json:"boardId" gorm:"primaryKey;autoIncrement:false"`
	FileName string `json:"fileName" gorm:"primaryKey"`
}

func (BoardFile) TableName() string {
	return "board_files"
}

// BoardLike rows exist at most once per (board, member); the composite key
// is what makes the toggle safe against double inserts.
type BoardLike struct {
	BoardID  int64 `json:"boardId" gorm:"primaryKey;autoIncrement:false"`
	MemberID int64 `json:"memberId" gorm:"primaryKey;autoIncrement:false"`
}

func (BoardLike) TableName() string {
	return "board_likes"
}

type BoardReport struct {
	BoardID    int64     `json:"boardId" gorm:"primaryKey;autoIncrement:false"`
	MemberID   int64     `json:"memberId" gorm:"primaryKey;autoIncrement:false"`
	ReportType string    `json:"reportType" gorm:"not null"`
	Reason     string    `json:"reason" gorm:"type:text;not null"`
	Inserted   time.Time `json:"inserted" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BoardReport) TableName() string {
	return "board_reports"
}

// FileView is how an attachment is presented to clients: the stored name
// plus the public URL it is served from.
type FileView struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type LikeView struct {
	Like  bool `json:"like"`
	Count int  `json:"count"`
}

type PageInfo struct {
	CurrentPageNumber int  `json:"currentPageNumber"`
	LastPageNumber    int  `json:"lastPageNumber"`
	LeftPageNumber    int  `json:"leftPageNumber"`
	RightPageNumber   int  `json:"rightPageNumber"`
	PrevPageNumber    *int `json:"prevPageNumber,omitempty"`
	NextPageNumber    *int `json:"nextPageNumber,omitempty"`
	Offset            int  `json:"offset"`
}

type ListResponse struct {
	PageInfo  PageInfo `json:"pageInfo"`
	BoardList []*Board `json:"boardList"`
}

type DetailResponse struct {
	Board *Board   `json:"board"`
	Like  LikeView `json:"like"`
}

type ReportContentResponse struct {
	Board   *Board         `json:"board"`
	Reports []*BoardReport `json:"reports"`
}

// ImageFeedItem is one row of the curated image feeds: a board id plus its
// first image, rewritten to a public URL by the service.
type ImageFeedItem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ImageURL      string `json:"imageUrl"`
	NumberOfLikes int    `json:"numberOfLikes"`
}

// Upload is one client-provided file: original name, byte size and the
// stream the bytes are read from.
type Upload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

type ListParams struct {
	Page        int
	PageAmount  int
	OffsetReset bool
	BoardType   string
	SearchType  string
	Keyword     string
	SessionKey  string
}

// FlexibleID accepts JSON numbers and numeric strings, the two shapes
// clients send ids in. Anything else fails the bind.
type FlexibleID int64

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return ErrNotNumeric
		}
		*f = FlexibleID(v)
		return nil
	}

	return ErrNotNumeric
}

type LikeRequest struct {
	BoardID  FlexibleID  `json:"boardId"`
	MemberID *FlexibleID `json:"memberId"`
}

type ReportRequest struct {
	BoardID    FlexibleID `json:"boardId"`
	MemberID   FlexibleID `json:"memberId"`
	Reason     string     `json:"reason"`
	ReportType string     `json:"reportType"`
}

type DeleteRequest struct {
	IDs      []int64 `json:"ids" binding:"required"`
	MemberID int64   `json:"memberId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
