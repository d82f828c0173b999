package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"office-tools-server/internal/clock"
	"office-tools-server/internal/config"
	"office-tools-server/internal/document"
	"office-tools-server/internal/editor"
	"office-tools-server/internal/filesystem"
	"office-tools-server/internal/launcher"
	"office-tools-server/internal/lock"
	"office-tools-server/internal/mail"
	"office-tools-server/internal/models"
)

// Confirmation messages of the tools that do not edit documents.
const (
	MsgAwaitingConfirmation = "email not sent: awaiting the user's second confirmation, call again with is_ok=true once the user confirms"
	msgEmailSent            = "email sent to %s"
	msgOpened               = "opened file: %s"
	msgCreated              = "created document: %s"
)

// OfficeService defines the tools exposed to callers. None of the methods
// return a Go error: every failure is reported in the Result.
type OfficeService interface {
	WordInsert(ctx context.Context, req models.WordInsertRequest) Result
	WordEdit(ctx context.Context, req models.WordEditRequest) Result
	WordCreate(ctx context.Context, req models.WordCreateRequest) Result
	WordRead(ctx context.Context, req models.WordReadRequest) Result
	FileOpen(ctx context.Context, req models.FileOpenRequest) Result
	SendEmail(ctx context.Context, req models.SendEmailRequest) Result
	CurrentDatetime(ctx context.Context) Result
}

// Result is what one tool call produced.
type Result struct {
	Outcome models.Outcome
	// Payload is the structured result of read-style tools, nil otherwise.
	Payload interface{}
	// Path is the document or file the call addressed, if any.
	Path string
	// Err is the classified failure behind an unsuccessful Outcome.
	Err error
}

// Deps are the collaborators of DefaultOfficeService. Nil fields get the
// production implementation, except Locker which is required.
type Deps struct {
	FS        filesystem.Adapter
	Locker    lock.Locker
	Documents *document.Registry
	Mail      mail.Sender
	Launcher  launcher.Launcher
	Clock     clock.Clock
}

// DefaultOfficeService implements the OfficeService interface.
type DefaultOfficeService struct {
	fs           filesystem.Adapter
	locker       lock.Locker
	documents    *document.Registry
	executor     *editor.Executor
	mailer       mail.Sender
	launcher     launcher.Launcher
	clock        clock.Clock
	validate     *validator.Validate
	logger       zerolog.Logger
	opTimeout    time.Duration
	mailTimeout  time.Duration
	allowedRoots []string
	insertPolicy string
}

var _ OfficeService = (*DefaultOfficeService)(nil)

// NewDefaultOfficeService creates a new DefaultOfficeService.
func NewDefaultOfficeService(deps Deps, cfg *config.Config, logger zerolog.Logger) (*DefaultOfficeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if deps.Locker == nil {
		return nil, fmt.Errorf("lock manager is required")
	}
	if deps.FS == nil {
		deps.FS = filesystem.NewOSAdapter()
	}
	if deps.Documents == nil {
		deps.Documents = document.NewRegistry(
			document.NewTextHost(deps.FS, cfg.MaxFileSizeBytes()),
			document.NewDocxHost(deps.FS, cfg.MaxFileSizeBytes()),
		)
	}
	if deps.Mail == nil {
		deps.Mail = mail.NewSMTPSender(cfg.Mail)
	}
	if deps.Launcher == nil {
		deps.Launcher = launcher.System{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}

	// Roots are compared after symlink evaluation, like the paths checked
	// against them.
	roots := make([]string, 0, len(cfg.AllowedRoots))
	for _, root := range cfg.AllowedRoots {
		resolved, err := deps.FS.EvalSymlinks(filepath.Clean(root))
		if err != nil {
			return nil, fmt.Errorf("could not resolve allowed root %s: %w", root, err)
		}
		roots = append(roots, resolved)
	}

	return &DefaultOfficeService{
		fs:           deps.FS,
		locker:       deps.Locker,
		documents:    deps.Documents,
		executor:     editor.NewExecutor(editor.NewResolver(editor.SearchScope(cfg.SearchScope))),
		mailer:       deps.Mail,
		launcher:     deps.Launcher,
		clock:        deps.Clock,
		validate:     newValidator(),
		logger:       logger,
		opTimeout:    time.Duration(cfg.OperationTimeoutSec) * time.Second,
		mailTimeout:  time.Duration(cfg.Mail.TimeoutSec) * time.Second,
		allowedRoots: roots,
		insertPolicy: cfg.InsertFlagPolicy,
	}, nil
}

// SupportedExtensions lists the document extensions the word_* tools accept.
func (s *DefaultOfficeService) SupportedExtensions() []string {
	return s.documents.Extensions()
}

func finish(path, success string, payload interface{}, err error) Result {
	out := editor.Report(success, err)
	res := Result{
		Outcome: models.Outcome{Success: out.OK, Message: out.Message},
		Path:    path,
		Err:     err,
	}
	if err == nil {
		res.Payload = payload
	}
	return res
}

// recoverTo turns a panic in a tool into a failed Result.
func (s *DefaultOfficeService) recoverTo(op, path string, res *Result) {
	v := recover()
	if v == nil {
		return
	}
	s.logger.Error().Str("tool", op).Str("path", path).Interface("panic", v).Msg("tool panicked")
	out := editor.ReportPanic(v)
	*res = Result{
		Outcome: models.Outcome{Success: false, Message: out.Message},
		Path:    path,
		Err:     editor.Automation(op, fmt.Sprintf("unexpected failure: %v", v), nil),
	}
}

// checkAbsolute validates that p is a non-empty absolute path and returns
// it cleaned.
func checkAbsolute(op, field, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", editor.Validationf(op, "%s is required", field)
	}
	if !filepath.IsAbs(p) {
		return "", editor.Validationf(op, "%s must be an absolute path, got %q", field, p)
	}
	return filepath.Clean(p), nil
}

// checkExisting validates that p exists and, depending on wantDir, is a
// directory or a regular file. A nil wantDir accepts both.
func (s *DefaultOfficeService) checkExisting(op, field, p string, wantDir *bool) (*filesystem.FileStats, error) {
	exists, err := s.fs.FileExists(p)
	if err != nil {
		return nil, editor.Automation(op, "failed to check "+p, err)
	}
	if !exists {
		return nil, &editor.Error{Kind: editor.KindValidation, Op: op, Msg: field + " " + p, Err: os.ErrNotExist}
	}
	stats, err := s.fs.GetFileStats(p)
	if err != nil {
		return nil, editor.Automation(op, "failed to stat "+p, err)
	}
	if wantDir != nil && stats.IsDir != *wantDir {
		if *wantDir {
			return nil, editor.Validationf(op, "%s must be a folder: %s", field, p)
		}
		return nil, editor.Validationf(op, "%s is a folder, not a file: %s", field, p)
	}
	return stats, nil
}

// checkAllowed rejects paths that resolve outside every allowed root.
// Without configured roots every path is allowed.
func (s *DefaultOfficeService) checkAllowed(op, p string) error {
	if len(s.allowedRoots) == 0 {
		return nil
	}
	resolved, err := s.fs.EvalSymlinks(p)
	if err != nil {
		return editor.Automation(op, "failed to resolve "+p, err)
	}
	for _, root := range s.allowedRoots {
		rel, err := filepath.Rel(root, resolved)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return nil
		}
	}
	return editor.Validationf(op, "path %s is outside the allowed folders", p)
}

// checkDocumentPath applies every check a document path must pass before a
// host is involved.
func (s *DefaultOfficeService) checkDocumentPath(op, p string) (string, error) {
	clean, err := checkAbsolute(op, "file_path", p)
	if err != nil {
		return "", err
	}
	isDir := false
	if _, err := s.checkExisting(op, "file_path", clean, &isDir); err != nil {
		return "", err
	}
	if err := s.checkAllowed(op, clean); err != nil {
		return "", err
	}
	if _, err := s.documents.HostFor(clean); err != nil {
		return "", &editor.Error{Kind: editor.KindValidation, Op: op, Msg: "unsupported document", Err: err}
	}
	return clean, nil
}

// withDocument opens path under its lock, runs fn and closes the session.
func (s *DefaultOfficeService) withDocument(ctx context.Context, op, path string, fn func(document.Session) error) error {
	held, err := s.locker.AcquireLock(ctx, path, s.opTimeout)
	if err != nil {
		return editor.Automation(op, "file locked", err)
	}
	defer func() {
		if err := s.locker.ReleaseLock(held); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to release document lock")
		}
	}()

	session, err := s.documents.Open(path)
	if err != nil {
		return editor.Automation(op, "failed to open "+path, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to close document")
		}
	}()
	return fn(session)
}

// apply runs one editor operation on path and reports it.
func (s *DefaultOfficeService) apply(ctx context.Context, op, path string, operation editor.Operation) Result {
	var msg string
	err := s.withDocument(ctx, op, path, func(session document.Session) error {
		var applyErr error
		msg, applyErr = s.executor.Apply(session, operation)
		return applyErr
	})
	return finish(path, msg, nil, err)
}

// WordInsert implements the OfficeService interface.
func (s *DefaultOfficeService) WordInsert(ctx context.Context, req models.WordInsertRequest) (res Result) {
	const op = "word_insert"
	defer s.recoverTo(op, req.FilePath, &res)

	if req.InsertFlag != nil && *req.InsertFlag != models.InsertAtTarget {
		// The target only matters for insert_flag 0.
		req.Target = nil
	}
	if err := s.validateRequest(op, req); err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	operation, err := s.insertOperation(op, req)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	path, err := s.checkDocumentPath(op, req.FilePath)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	return s.apply(ctx, op, path, operation)
}

func (s *DefaultOfficeService) insertOperation(op string, req models.WordInsertRequest) (editor.Operation, error) {
	switch flag := *req.InsertFlag; flag {
	case models.InsertAtStart:
		return editor.InsertOp(req.Text, editor.AtStart()), nil
	case models.InsertAtEnd:
		return editor.InsertOp(req.Text, editor.AtEnd()), nil
	case models.InsertAtTarget:
		if req.Target == nil {
			return editor.Operation{}, editor.Validationf(op, "target is required when insert_flag is 0")
		}
		anchor := editor.Before
		if *req.Target.Flag == models.AnchorAfter {
			anchor = editor.After
		}
		return editor.InsertOp(req.Text, editor.AtLineTarget(req.Target.LineNum, req.Target.TarText, anchor)), nil
	default:
		if s.insertPolicy == config.InsertFlagAppend {
			s.logger.Debug().Int("insert_flag", flag).Msg("unknown insert_flag, appending at the end")
			return editor.InsertOp(req.Text, editor.AtEnd()), nil
		}
		return editor.Operation{}, editor.Validationf(op, "insert_flag must be -1, 0 or 1, got %d", flag)
	}
}

// WordEdit implements the OfficeService interface.
func (s *DefaultOfficeService) WordEdit(ctx context.Context, req models.WordEditRequest) (res Result) {
	const op = "word_edit"
	defer s.recoverTo(op, req.FilePath, &res)

	if err := s.validateRequest(op, req); err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	if strings.ContainsAny(req.Text, "\r\n") {
		return finish(req.FilePath, "", nil, editor.Validationf(op, "text must not contain line breaks"))
	}
	path, err := s.checkDocumentPath(op, req.FilePath)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	return s.apply(ctx, op, path, editor.ReplaceOp(req.Target.LineNum, req.Target.TarText, req.Text))
}

// WordCreate implements the OfficeService interface.
func (s *DefaultOfficeService) WordCreate(ctx context.Context, req models.WordCreateRequest) (res Result) {
	const op = "word_create"
	defer s.recoverTo(op, req.FilePath, &res)

	if err := s.validateRequest(op, req); err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	folder, err := checkAbsolute(op, "file_path", req.FilePath)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	isDir := true
	if _, err := s.checkExisting(op, "file_path", folder, &isDir); err != nil {
		return finish(folder, "", nil, err)
	}
	if err := s.checkAllowed(op, folder); err != nil {
		return finish(folder, "", nil, err)
	}

	name := strings.TrimSpace(req.FileName)
	if name == "" {
		name = models.DefaultDocumentName
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return finish(folder, "", nil, editor.Validationf(op, "file_name must be a plain file name, got %q", req.FileName))
	}
	path := filepath.Join(folder, name)
	if _, err := s.documents.HostFor(path); err != nil {
		return finish(path, "", nil, &editor.Error{Kind: editor.KindValidation, Op: op, Msg: "unsupported document", Err: err})
	}
	exists, err := s.fs.FileExists(path)
	if err != nil {
		return finish(path, "", nil, editor.Automation(op, "failed to check "+path, err))
	}
	if exists {
		return finish(path, "", nil, editor.Validationf(op, "file already exists: %s", path))
	}

	held, err := s.locker.AcquireLock(ctx, path, s.opTimeout)
	if err != nil {
		return finish(path, "", nil, editor.Automation(op, "file locked", err))
	}
	defer func() {
		if err := s.locker.ReleaseLock(held); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to release document lock")
		}
	}()

	if err := s.documents.Create(path); err != nil {
		return finish(path, "", nil, editor.Automation(op, "failed to create "+path, err))
	}
	return finish(path, fmt.Sprintf(msgCreated, path), nil, nil)
}

// WordRead implements the OfficeService interface.
func (s *DefaultOfficeService) WordRead(ctx context.Context, req models.WordReadRequest) (res Result) {
	const op = "word_read"
	defer s.recoverTo(op, req.FilePath, &res)

	if err := s.validateRequest(op, req); err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	if req.StartLine > 0 && req.EndLine > 0 && req.StartLine > req.EndLine {
		return finish(req.FilePath, "", nil, editor.Validationf(op, "start_line %d is after end_line %d", req.StartLine, req.EndLine))
	}
	path, err := s.checkDocumentPath(op, req.FilePath)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}

	var resp models.WordReadResponse
	err = s.withDocument(ctx, op, path, func(session document.Session) error {
		total := session.LineCount()
		start, end := req.StartLine, req.EndLine
		if start == 0 {
			start = 1
		}
		if end == 0 || end > total {
			end = total
		}
		if start > total {
			return editor.Validationf(op, "start_line %d is out of range, document has %d lines", start, total)
		}

		lines := make([]string, 0, end-start+1)
		for n := start; n <= end; n++ {
			line, err := session.ReadLine(n)
			if err != nil {
				return editor.Automation(op, fmt.Sprintf("failed to read line %d", n), err)
			}
			lines = append(lines, line)
		}
		resp = models.WordReadResponse{Content: strings.Join(lines, "\n"), TotalLines: total}
		if req.StartLine > 0 || req.EndLine > 0 {
			resp.RangeRequested = &models.RangeRequested{StartLine: start, EndLine: end}
		}
		return nil
	})
	if err != nil {
		return finish(path, "", nil, err)
	}
	return finish(path, resp.Content, resp, nil)
}

// FileOpen implements the OfficeService interface.
func (s *DefaultOfficeService) FileOpen(_ context.Context, req models.FileOpenRequest) (res Result) {
	const op = "file_open"
	defer s.recoverTo(op, req.FilePath, &res)

	if err := s.validateRequest(op, req); err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	path, err := checkAbsolute(op, "file_path", req.FilePath)
	if err != nil {
		return finish(req.FilePath, "", nil, err)
	}
	if _, err := s.checkExisting(op, "file_path", path, nil); err != nil {
		return finish(path, "", nil, err)
	}
	if err := s.checkAllowed(op, path); err != nil {
		return finish(path, "", nil, err)
	}
	if err := s.launcher.Open(path); err != nil {
		return finish(path, "", nil, editor.Automation(op, "failed to launch "+path, err))
	}
	return finish(path, fmt.Sprintf(msgOpened, path), nil, nil)
}

// SendEmail implements the OfficeService interface. Nothing is sent until
// the request carries the user's second confirmation.
func (s *DefaultOfficeService) SendEmail(ctx context.Context, req models.SendEmailRequest) (res Result) {
	const op = "send_email"
	defer s.recoverTo(op, "", &res)

	if err := s.validateRequest(op, req); err != nil {
		return finish("", "", nil, err)
	}
	if !req.IsOK {
		return finish("", MsgAwaitingConfirmation, nil, nil)
	}

	if s.mailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.mailTimeout)
		defer cancel()
	}
	msg := mail.Message{To: req.To, Cc: req.Cc, Subject: req.Subject, Body: req.Message}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return finish("", "", nil, editor.Automation(op, "failed to send email", err))
	}
	return finish("", fmt.Sprintf(msgEmailSent, strings.Join(msg.Recipients(), ", ")), nil, nil)
}

// CurrentDatetime implements the OfficeService interface.
func (s *DefaultOfficeService) CurrentDatetime(_ context.Context) (res Result) {
	const op = "retrieve_current_datetime"
	defer s.recoverTo(op, "", &res)

	now := clock.Format(s.clock.Now())
	return finish("", now, models.DatetimeResponse{Datetime: now}, nil)
}
