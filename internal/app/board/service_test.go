package board

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"backend/internal/config"

	"go.uber.org/zap"
)

type likeKey struct {
	boardID  int64
	memberID int64
}

// mockRepo is an in-memory gateway. Transaction applies fn directly; tests
// that need a rollback inject a failure and assert on the orphan queue
// instead of on undone writes.
type mockRepo struct {
	boards  map[int64]*Board
	files   map[int64][]string
	likes   map[likeKey]bool
	reports map[likeKey]*BoardReport
	nextID  int64

	failInsertFile bool
	failUpdate     bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		boards:  make(map[int64]*Board),
		files:   make(map[int64][]string),
		likes:   make(map[likeKey]bool),
		reports: make(map[likeKey]*BoardReport),
		nextID:  1,
	}
}

func (m *mockRepo) Transaction(fn func(Repository) error) error { return fn(m) }

func (m *mockRepo) InsertBoard(b *Board) error {
	b.ID = m.nextID
	m.nextID++
	m.boards[b.ID] = b
	return nil
}

func (m *mockRepo) SelectByID(id int64) (*Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, ErrBoardNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) UpdateBoard(b *Board) error {
	if m.failUpdate {
		return errors.New("update failed")
	}
	existing, ok := m.boards[b.ID]
	if !ok {
		return ErrBoardNotFound
	}
	existing.Title = b.Title
	existing.Content = b.Content
	existing.Writer = b.Writer
	existing.BoardType = b.BoardType
	return nil
}

func (m *mockRepo) DeleteByID(id int64) error {
	delete(m.boards, id)
	return nil
}

func (m *mockRepo) SelectViewsByID(id int64) (int, error) {
	b, ok := m.boards[id]
	if !ok {
		return 0, ErrBoardNotFound
	}
	return b.Views, nil
}

func (m *mockRepo) IncrementViews(id int64, currentViews int) error {
	if b, ok := m.boards[id]; ok {
		b.Views = currentViews + 1
	}
	return nil
}

func (m *mockRepo) CountBoards(f Filter, reportedOnly bool) (int, error) {
	count := 0
	for id := range m.boards {
		if reportedOnly && !m.boardReported(id) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockRepo) boardReported(id int64) bool {
	for k := range m.reports {
		if k.boardID == id {
			return true
		}
	}
	return false
}

func (m *mockRepo) SelectPage(f Filter, offset, limit int, reportedOnly bool) ([]*Board, error) {
	var out []*Board
	for id := m.nextID - 1; id >= 1; id-- {
		b, ok := m.boards[id]
		if !ok {
			continue
		}
		if reportedOnly && !m.boardReported(id) {
			continue
		}
		out = append(out, b)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) SelectLatest(limit int) ([]*Board, error) {
	return m.SelectPage(Filter{}, 0, limit, false)
}

func (m *mockRepo) SelectPopular(limit int) ([]*Board, error) {
	return m.SelectPage(Filter{}, 0, limit, false)
}

func (m *mockRepo) SelectTopLikedImages(limit int) ([]*ImageFeedItem, error) {
	var items []*ImageFeedItem
	for id, names := range m.files {
		if len(names) == 0 {
			continue
		}
		items = append(items, &ImageFeedItem{ID: id, Title: m.boards[id].Title, ImageURL: names[0]})
	}
	return items, nil
}

func (m *mockRepo) SelectGuideBoards(limit int) ([]*ImageFeedItem, error) {
	return m.SelectTopLikedImages(limit)
}

func (m *mockRepo) InsertFileName(boardID int64, name string) error {
	if m.failInsertFile {
		return errors.New("insert file failed")
	}
	m.files[boardID] = append(m.files[boardID], name)
	return nil
}

func (m *mockRepo) SelectFileNames(boardID int64) ([]string, error) {
	return m.files[boardID], nil
}

func (m *mockRepo) FirstImage(boardID int64) (string, error) {
	names := m.files[boardID]
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func (m *mockRepo) DeleteFilesByBoardID(boardID int64) error {
	delete(m.files, boardID)
	return nil
}

func (m *mockRepo) DeleteFileByName(boardID int64, name string) error {
	names := m.files[boardID]
	for i, n := range names {
		if n == name {
			m.files[boardID] = append(names[:i], names[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepo) InsertLike(boardID, memberID int64) error {
	m.likes[likeKey{boardID, memberID}] = true
	return nil
}

func (m *mockRepo) DeleteLike(boardID, memberID int64) (int64, error) {
	k := likeKey{boardID, memberID}
	if m.likes[k] {
		delete(m.likes, k)
		return 1, nil
	}
	return 0, nil
}

func (m *mockRepo) HasLike(boardID, memberID int64) (bool, error) {
	return m.likes[likeKey{boardID, memberID}], nil
}

func (m *mockRepo) CountLikes(boardID int64) (int, error) {
	count := 0
	for k := range m.likes {
		if k.boardID == boardID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) DeleteLikesByBoardID(boardID int64) error {
	for k := range m.likes {
		if k.boardID == boardID {
			delete(m.likes, k)
		}
	}
	return nil
}

func (m *mockRepo) InsertReport(report *BoardReport) error {
	m.reports[likeKey{report.BoardID, report.MemberID}] = report
	return nil
}

func (m *mockRepo) CountReportsByPrimaryKey(boardID, memberID int64) (int, error) {
	if _, ok := m.reports[likeKey{boardID, memberID}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (m *mockRepo) SelectReportsByBoardID(boardID int64) ([]*BoardReport, error) {
	var out []*BoardReport
	for k, r := range m.reports {
		if k.boardID == boardID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) DeleteCommentsByBoardID(boardID int64) error { return nil }

type fakeBlob struct {
	objects    map[string]bool
	failRemove map[string]bool
	failPut    bool
	puts       []string
	removes    []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string]bool), failRemove: make(map[string]bool)}
}

func (f *fakeBlob) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if f.failPut {
		return errors.New("put failed")
	}
	io.Copy(io.Discard, reader)
	f.objects[key] = true
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeBlob) Remove(ctx context.Context, key string) error {
	if f.failRemove[key] {
		return errors.New("remove failed")
	}
	delete(f.objects, key)
	f.removes = append(f.removes, key)
	return nil
}

func (f *fakeBlob) RemovePrefix(ctx context.Context, prefix string) error {
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) && !f.failRemove[key] {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeBlob) Bucket() string { return "board-files" }

type fakeOrphans struct {
	queued []string
}

func (f *fakeOrphans) Enqueue(bucket, key string) error {
	f.queued = append(f.queued, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SrcPrefix:     "http://localhost:9000/board-files/prj3/",
		AdminMemberID: 1,
	}
}

func newTestService(repo Repository, blob BlobStore, orphans OrphanRecorder) Service {
	return NewService(repo, blob, nil, orphans, zap.NewNop(), testConfig())
}

func upload(name, body string) Upload {
	return Upload{Name: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func seedBoard(repo *mockRepo, memberID int64) *Board {
	b := &Board{Title: "제목", Content: "본문", Writer: "작성자", MemberID: memberID, BoardType: "자유"}
	repo.InsertBoard(b)
	return b
}

func TestValidate(t *testing.T) {
	svc := newTestService(newMockRepo(), nil, nil)

	if svc.Validate(&Board{Title: "t", Content: "c"}) != true {
		t.Error("expected valid board to pass")
	}
	if svc.Validate(&Board{Title: "   ", Content: "c"}) {
		t.Error("blank title should fail")
	}
	if svc.Validate(&Board{Title: "t", Content: "\t\n"}) {
		t.Error("blank content should fail")
	}
}

func TestAddUploadsFilesUnderBoardKey(t *testing.T) {
	repo := newMockRepo()
	blob := newFakeBlob()
	svc := newTestService(repo, blob, &fakeOrphans{})

	b := &Board{Title: "t", Content: "c", Writer: "w", MemberID: 2}
	err := svc.Add(context.Background(), b, []Upload{upload("cat.png", "img")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !blob.objects["prj3/board/1/cat.png"] {
		t.Errorf("blob key not written, got %v", blob.puts)
	}
	names, _ := repo.SelectFileNames(b.ID)
	if len(names) != 1 || names[0] != "cat.png" {
		t.Errorf("file rows = %v, want [cat.png]", names)
	}
}

func TestAddRollbackQueuesOrphans(t *testing.T) {
	repo := newMockRepo()
	repo.failInsertFile = true
	blob := newFakeBlob()
	orphans := &fakeOrphans{}
	svc := newTestService(repo, blob, orphans)

	b := &Board{Title: "t", Content: "c", Writer: "w", MemberID: 2}
	err := svc.Add(context.Background(), b, []Upload{upload("cat.png", "img")})
	if err == nil {
		t.Fatal("expected Add to fail")
	}
	// The failing insert precedes the upload, so nothing was written and
	// nothing needs queuing.
	if len(orphans.queued) != 0 {
		t.Errorf("queued = %v, want none", orphans.queued)
	}
}

func TestAddWithFilesRequiresBlobStore(t *testing.T) {
	svc := newTestService(newMockRepo(), nil, nil)

	b := &Board{Title: "t", Content: "c", Writer: "w", MemberID: 2}
	err := svc.Add(context.Background(), b, []Upload{upload("cat.png", "img")})
	if !errors.Is(err, ErrBlobUnavailable) {
		t.Errorf("err = %v, want ErrBlobUnavailable", err)
	}

	// Text-only posts go through without a store.
	if err := svc.Add(context.Background(), b, nil); err != nil {
		t.Errorf("text-only Add: %v", err)
	}
}

func TestGetIncrementsViewsAndSynthesizesURLs(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newFakeBlob(), nil)

	b := seedBoard(repo, 2)
	repo.InsertFileName(b.ID, "dog.jpg")

	member := int64(2)
	res, err := svc.GetByBoardIDAndMemberID(context.Background(), b.ID, &member)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if res.Board.Views != 1 {
		t.Errorf("views = %d, want 1", res.Board.Views)
	}
	want := "http://localhost:9000/board-files/prj3/board/1/dog.jpg"
	if len(res.Board.FileList) != 1 || res.Board.FileList[0].URL != want {
		t.Errorf("FileList = %v, want URL %s", res.Board.FileList, want)
	}
}

func TestGetUnknownBoard(t *testing.T) {
	svc := newTestService(newMockRepo(), nil, nil)

	_, err := svc.GetByBoardIDAndMemberID(context.Background(), 99, nil)
	if !errors.Is(err, ErrBoardNotFound) {
		t.Errorf("err = %v, want ErrBoardNotFound", err)
	}
}

func TestLikeTogglePair(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil, nil)
	b := seedBoard(repo, 2)

	res, err := svc.Like(context.Background(), b.ID, 5)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !res.Like || res.Count != 1 {
		t.Errorf("first toggle = %+v, want like=true count=1", res)
	}

	res, err = svc.Like(context.Background(), b.ID, 5)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if res.Like || res.Count != 0 {
		t.Errorf("second toggle = %+v, want like=false count=0", res)
	}
}

func TestAddReportRefusesDuplicate(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil, nil)
	b := seedBoard(repo, 2)

	report := &BoardReport{BoardID: b.ID, MemberID: 5, Reason: "스팸", ReportType: "spam"}
	accepted, err := svc.AddReport(context.Background(), report)
	if err != nil || !accepted {
		t.Fatalf("first report: accepted=%v err=%v", accepted, err)
	}

	accepted, err = svc.AddReport(context.Background(), report)
	if err != nil {
		t.Fatalf("duplicate report: %v", err)
	}
	if accepted {
		t.Error("duplicate report should be refused")
	}
}

func TestHasAccess(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil, nil)
	b := seedBoard(repo, 7)

	if !svc.HasAccess(b.ID, 7) {
		t.Error("owner should have access")
	}
	if !svc.HasAccess(b.ID, 1) {
		t.Error("admin should have access")
	}
	if svc.HasAccess(b.ID, 8) {
		t.Error("stranger should not have access")
	}
	if svc.HasAccess(99, 7) {
		t.Error("missing board should deny access")
	}
}

func TestDeleteCascadesAndQueuesFailedBlobRemovals(t *testing.T) {
	repo := newMockRepo()
	blob := newFakeBlob()
	orphans := &fakeOrphans{}
	svc := newTestService(repo, blob, orphans)

	b := seedBoard(repo, 2)
	repo.InsertFileName(b.ID, "a.png")
	repo.InsertFileName(b.ID, "b.png")
	blob.objects["prj3/board/1/a.png"] = true
	blob.objects["prj3/board/1/b.png"] = true
	blob.failRemove["prj3/board/1/b.png"] = true
	repo.InsertLike(b.ID, 5)

	if err := svc.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := repo.SelectByID(b.ID); !errors.Is(err, ErrBoardNotFound) {
		t.Error("board row should be gone")
	}
	if names, _ := repo.SelectFileNames(b.ID); len(names) != 0 {
		t.Errorf("file rows remain: %v", names)
	}
	if count, _ := repo.CountLikes(b.ID); count != 0 {
		t.Errorf("likes remain: %d", count)
	}
	if len(orphans.queued) != 1 || orphans.queued[0] != "prj3/board/1/b.png" {
		t.Errorf("queued = %v, want the failed key only", orphans.queued)
	}
}

func TestEditRemovesAndAddsFiles(t *testing.T) {
	repo := newMockRepo()
	blob := newFakeBlob()
	svc := newTestService(repo, blob, &fakeOrphans{})

	b := seedBoard(repo, 2)
	repo.InsertFileName(b.ID, "old.png")
	blob.objects["prj3/board/1/old.png"] = true

	edited := &Board{ID: b.ID, Title: "새 제목", Content: "새 본문", Writer: "작성자", BoardType: "자유"}
	err := svc.Edit(context.Background(), edited, []string{"old.png"}, []Upload{upload("new.png", "img")})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if blob.objects["prj3/board/1/old.png"] {
		t.Error("removed blob still present")
	}
	if !blob.objects["prj3/board/1/new.png"] {
		t.Error("added blob missing")
	}
	names, _ := repo.SelectFileNames(b.ID)
	if len(names) != 1 || names[0] != "new.png" {
		t.Errorf("file rows = %v, want [new.png]", names)
	}
	got, _ := repo.SelectByID(b.ID)
	if got.Title != "새 제목" {
		t.Errorf("title = %q, want updated title", got.Title)
	}
}

func TestEditReuploadKeepsSingleFileRow(t *testing.T) {
	repo := newMockRepo()
	blob := newFakeBlob()
	svc := newTestService(repo, blob, &fakeOrphans{})

	b := seedBoard(repo, 2)
	repo.InsertFileName(b.ID, "same.png")

	edited := &Board{ID: b.ID, Title: "t", Content: "c", Writer: "w", BoardType: "자유"}
	err := svc.Edit(context.Background(), edited, nil, []Upload{upload("same.png", "v2")})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	names, _ := repo.SelectFileNames(b.ID)
	if len(names) != 1 {
		t.Errorf("file rows = %v, want one row after re-upload", names)
	}
	if !blob.objects["prj3/board/1/same.png"] {
		t.Error("blob should hold the re-uploaded content key")
	}
}

func TestEditFailureQueuesUploadedBlobs(t *testing.T) {
	repo := newMockRepo()
	repo.failUpdate = true
	blob := newFakeBlob()
	orphans := &fakeOrphans{}
	svc := newTestService(repo, blob, orphans)

	b := seedBoard(repo, 2)
	edited := &Board{ID: b.ID, Title: "t", Content: "c", Writer: "w", BoardType: "자유"}
	err := svc.Edit(context.Background(), edited, nil, []Upload{upload("stranded.png", "img")})
	if err == nil {
		t.Fatal("expected Edit to fail")
	}

	if len(orphans.queued) != 1 || orphans.queued[0] != "prj3/board/1/stranded.png" {
		t.Errorf("queued = %v, want the stranded upload key", orphans.queued)
	}
}

func TestListRejectsNonPositivePage(t *testing.T) {
	svc := newTestService(newMockRepo(), nil, nil)

	_, err := svc.List(context.Background(), ListParams{Page: 0, PageAmount: 30})
	if !errors.Is(err, ErrInvalidPage) {
		t.Errorf("err = %v, want ErrInvalidPage", err)
	}
}

func TestListSetsThumbnailFromFirstImage(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newFakeBlob(), nil)

	b := seedBoard(repo, 2)
	repo.InsertFileName(b.ID, "thumb.png")
	seedBoard(repo, 3)

	res, err := svc.List(context.Background(), ListParams{Page: 1, PageAmount: 30, BoardType: TypeAll, SearchType: TypeAll})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(res.BoardList) != 2 {
		t.Fatalf("got %d boards, want 2", len(res.BoardList))
	}
	if res.PageInfo.LastPageNumber != 1 {
		t.Errorf("LastPageNumber = %d, want 1", res.PageInfo.LastPageNumber)
	}

	var withThumb *Board
	for _, row := range res.BoardList {
		if row.ID == b.ID {
			withThumb = row
		}
	}
	want := "http://localhost:9000/board-files/prj3/board/1/thumb.png"
	if withThumb == nil || withThumb.ThumbnailURL != want {
		t.Errorf("thumbnail = %v, want %s", withThumb, want)
	}
}

func TestReportListOnlyReportedBoards(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil, nil)

	reported := seedBoard(repo, 2)
	seedBoard(repo, 3)
	repo.InsertReport(&BoardReport{BoardID: reported.ID, MemberID: 9, Reason: "r", ReportType: "spam"})

	res, err := svc.ReportList(context.Background(), ListParams{Page: 1, PageAmount: 30})
	if err != nil {
		t.Fatalf("ReportList: %v", err)
	}
	if len(res.BoardList) != 1 || res.BoardList[0].ID != reported.ID {
		t.Errorf("BoardList = %v, want only the reported board", res.BoardList)
	}
}

func TestFeedImageURLRewrite(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil, nil)

	b := seedBoard(repo, 2)
	repo.files[b.ID] = []string{"feed.png"}

	items, err := svc.GetTopLikedImages(context.Background())
	if err != nil {
		t.Fatalf("GetTopLikedImages: %v", err)
	}
	want := "http://localhost:9000/board-files/prj3/board/1/feed.png"
	if len(items) != 1 || items[0].ImageURL != want {
		t.Errorf("items = %v, want ImageURL %s", items, want)
	}
}
