package board

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	Add(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Edit(c *gin.Context)
	Delete(c *gin.Context)
	DeleteMultiple(c *gin.Context)
	Like(c *gin.Context)
	Report(c *gin.Context)
	ReportList(c *gin.Context)
	ReportContent(c *gin.Context)
	GetLatestBoards(c *gin.Context)
	GetPopularBoards(c *gin.Context)
	GetTopLikedImages(c *gin.Context)
	GetGuideBoards(c *gin.Context)
}

type handler struct {
	service     Service
	maxFileSize int64
	maxFiles    int
}

func NewHandler(service Service, maxFileSize int64, maxFiles int) Handler {
	return &handler{
		service:     service,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
	}
}

const sessionKeyHeader = "X-Session-Key"

// @Summary Create a board post
// @Description Create a post with optional image attachments
// @Tags Board
// @Accept multipart/form-data
// @Produce json
// @Success 200
// @Failure 400 {object} ErrorResponse
// @Router /api/board/add [post]
func (h *handler) Add(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.PostForm("memberId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid memberId"})
		return
	}

	b := &Board{
		Title:     c.PostForm("title"),
		Content:   c.PostForm("content"),
		Writer:    c.PostForm("writer"),
		MemberID:  memberID,
		BoardType: c.DefaultPostForm("boardType", "자유"),
	}
	if !h.service.Validate(b) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title and content must not be blank"})
		return
	}

	files := h.formFiles(c, "files[]")
	if !h.checkFiles(c, files) {
		return
	}

	uploads, closeAll, err := openUploads(files)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read uploaded files"})
		return
	}
	defer closeAll()

	if err := h.service.Add(c.Request.Context(), b, uploads); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create board"})
		return
	}

	c.Status(http.StatusOK)
}

// @Summary List board posts
// @Description Paginated board list with type filter and keyword search
// @Tags Board
// @Produce json
// @Success 200 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/board/list [get]
func (h *handler) List(c *gin.Context) {
	p, ok := h.bindListParams(c)
	if !ok {
		return
	}

	res, err := h.service.List(c.Request.Context(), p)
	if err != nil {
		h.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) ReportList(c *gin.Context) {
	p, ok := h.bindListParams(c)
	if !ok {
		return
	}

	res, err := h.service.ReportList(c.Request.Context(), p)
	if err != nil {
		h.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) bindListParams(c *gin.Context) (ListParams, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		return ListParams{}, false
	}
	pageAmount, err := strconv.Atoi(c.DefaultQuery("pageAmount", "30"))
	if err != nil || pageAmount < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pageAmount"})
		return ListParams{}, false
	}
	offsetReset, err := strconv.ParseBool(c.DefaultQuery("offsetReset", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offsetReset"})
		return ListParams{}, false
	}

	return ListParams{
		Page:        page,
		PageAmount:  pageAmount,
		OffsetReset: offsetReset,
		BoardType:   c.DefaultQuery("boardType", TypeAll),
		SearchType:  c.DefaultQuery("searchType", TypeAll),
		Keyword:     c.DefaultQuery("keyword", ""),
		SessionKey:  c.GetHeader(sessionKeyHeader),
	}, true
}

func (h *handler) listError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidPage) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list boards"})
}

// @Summary Get a board post
// @Description Board detail with files and like state; increments views
// @Tags Board
// @Produce json
// @Success 200 {object} DetailResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/board/{id} [get]
func (h *handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid board ID"})
		return
	}

	var memberID *int64
	if raw := c.Query("memberId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid memberId"})
			return
		}
		memberID = &v
	}

	res, err := h.service.GetByBoardIDAndMemberID(c.Request.Context(), id, memberID)
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get board"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Edit a board post
// @Description Update fields, remove and add attachments; owner or admin only
// @Tags Board
// @Accept multipart/form-data
// @Success 200
// @Failure 403 {object} ErrorResponse
// @Router /api/board/edit [put]
func (h *handler) Edit(c *gin.Context) {
	id, err := strconv.ParseInt(c.PostForm("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid board ID"})
		return
	}
	memberID, err := strconv.ParseInt(c.PostForm("memberId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid memberId"})
		return
	}

	b := &Board{
		ID:        id,
		Title:     c.PostForm("title"),
		Content:   c.PostForm("content"),
		Writer:    c.PostForm("writer"),
		BoardType: c.PostForm("boardType"),
	}
	if !h.service.Validate(b) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title and content must not be blank"})
		return
	}
	if !h.service.HasAccess(id, memberID) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "no access to this board"})
		return
	}

	removeFileList := c.PostFormArray("removeFileList[]")
	addFiles := h.formFiles(c, "addFileList[]")
	if !h.checkFiles(c, addFiles) {
		return
	}

	uploads, closeAll, err := openUploads(addFiles)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read uploaded files"})
		return
	}
	defer closeAll()

	if err := h.service.Edit(c.Request.Context(), b, removeFileList, uploads); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to edit board"})
		return
	}

	c.Status(http.StatusOK)
}

// @Summary Delete a board post
// @Tags Board
// @Success 200
// @Failure 403 {object} ErrorResponse
// @Router /api/board/{id} [delete]
func (h *handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid board ID"})
		return
	}
	memberID, err := strconv.ParseInt(c.Query("memberId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid memberId"})
		return
	}

	if !h.service.HasAccess(id, memberID) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "no access to this board"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete board"})
		return
	}
	c.Status(http.StatusOK)
}

// DeleteMultiple rejects the whole batch before deleting anything when
// the caller lacks access to any one of the ids.
func (h *handler) DeleteMultiple(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	for _, id := range req.IDs {
		if !h.service.HasAccess(id, req.MemberID) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "no access to this board"})
			return
		}
	}

	for _, id := range req.IDs {
		if err := h.service.Delete(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete boards"})
			return
		}
	}

	c.Status(http.StatusOK)
}

// @Summary Toggle a like
// @Description Flip the caller's like on a board, returns new state and count
// @Tags Board
// @Accept json
// @Produce json
// @Success 200 {object} LikeView
// @Failure 400 {object} ErrorResponse
// @Router /api/board/like [put]
func (h *handler) Like(c *gin.Context) {
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid boardId or memberId"})
		return
	}
	if req.MemberID == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "memberId is required"})
		return
	}

	res, err := h.service.Like(c.Request.Context(), int64(req.BoardID), int64(*req.MemberID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to toggle like"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Report a board post
// @Description One report per member per board; duplicates are refused
// @Tags Board
// @Accept json
// @Success 200
// @Failure 403 {object} ErrorResponse
// @Router /api/board/report [post]
func (h *handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !h.service.IsLoggedIn(int64(req.MemberID)) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "memberId is required"})
		return
	}

	accepted, err := h.service.AddReport(c.Request.Context(), &BoardReport{
		BoardID:    int64(req.BoardID),
		MemberID:   int64(req.MemberID),
		Reason:     req.Reason,
		ReportType: req.ReportType,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to add report"})
		return
	}
	if !accepted {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "already reported"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *handler) ReportContent(c *gin.Context) {
	boardID, err := strconv.ParseInt(c.Query("boardId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid boardId"})
		return
	}
	// repoterMemberId is part of the request contract but the response is
	// the same for every reporter.
	if raw := c.Query("repoterMemberId"); raw != "" {
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid repoterMemberId"})
			return
		}
	}

	res, err := h.service.ReportContent(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get report content"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) GetLatestBoards(c *gin.Context) {
	boards, err := h.service.GetLatestBoards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch latest boards"})
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *handler) GetPopularBoards(c *gin.Context) {
	boards, err := h.service.GetPopularBoards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch popular boards"})
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *handler) GetTopLikedImages(c *gin.Context) {
	items, err := h.service.GetTopLikedImages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch top liked images"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handler) GetGuideBoards(c *gin.Context) {
	items, err := h.service.GetGuideBoards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch guide boards"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handler) formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

func (h *handler) checkFiles(c *gin.Context, files []*multipart.FileHeader) bool {
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "too many files"})
		return false
	}
	for _, f := range files {
		if h.maxFileSize > 0 && f.Size > h.maxFileSize {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file too large: " + f.Filename})
			return false
		}
	}
	return true
}

func openUploads(files []*multipart.FileHeader) ([]Upload, func(), error) {
	uploads := make([]Upload, 0, len(files))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		uploads = append(uploads, Upload{Name: fh.Filename, Size: fh.Size, Reader: f})
	}

	return uploads, closeAll, nil
}
