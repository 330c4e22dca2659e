package service

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"reimburse/internal/domain"
	"reimburse/internal/loader"
	"reimburse/internal/prompt"
	"reimburse/internal/vectorstore"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	StateEmpty State = iota
	StateIndexed
	StateAnswering
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIndexed:
		return "indexed"
	case StateAnswering:
		return "answering"
	default:
		return "unknown"
	}
}

// Reply is the outcome of one question.
type Reply struct {
	Context domain.RetrievalResult
	Prompt  domain.Prompt
	Answer  string
}

// Display renders the answer under its label.
func (r *Reply) Display() string {
	return "Answer:\n" + r.Answer
}

// Session owns the active document index and drives the question cycle.
// It is not safe for concurrent use; callers run one interaction at a time.
type Session struct {
	loader    *loader.Loader
	indexer   *Indexer
	retriever *Retriever
	generator domain.Generator
	logger    *zap.Logger

	state   State
	index   vectorstore.Index
	source  string
	records int
}

func NewSession(l *loader.Loader, indexer *Indexer, retriever *Retriever, generator domain.Generator, logger *zap.Logger) *Session {
	return &Session{
		loader:    l,
		indexer:   indexer,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Source returns the file name of the indexed document, if any.
func (s *Session) Source() string { return s.source }

// Records returns how many records the indexed document produced.
func (s *Session) Records() int { return s.records }

// Process loads an uploaded document and replaces the active index with one
// built from it. On failure the previous index, if any, stays active.
func (s *Session) Process(ctx context.Context, fileName string, data []byte) (int, error) {
	records, err := s.loader.Load(data, fileName)
	if err != nil {
		s.logger.Info("document rejected", zap.String("file", fileName), zap.Error(err))
		return 0, err
	}
	return s.swap(ctx, filepath.Base(fileName), records)
}

// ProcessFile is Process for a document on disk.
func (s *Session) ProcessFile(ctx context.Context, path string) (int, error) {
	records, err := s.loader.LoadFile(path)
	if err != nil {
		s.logger.Info("document rejected", zap.String("file", path), zap.Error(err))
		return 0, err
	}
	return s.swap(ctx, filepath.Base(path), records)
}

func (s *Session) swap(ctx context.Context, source string, records []domain.Record) (int, error) {
	index, err := s.indexer.Build(ctx, records)
	if err != nil {
		s.logger.Warn("indexing failed", zap.String("file", source), zap.Error(err))
		return 0, err
	}

	if s.index != nil {
		if err := s.index.Close(ctx); err != nil {
			s.logger.Warn("failed to close previous index", zap.Error(err))
		}
	}
	s.index = index
	s.source = source
	s.records = len(records)
	s.state = StateIndexed

	s.logger.Info("document indexed", zap.String("file", source), zap.Int("records", len(records)))
	return len(records), nil
}

// Ask answers a question from the active index. The session returns to
// StateIndexed whether or not the answer succeeds.
func (s *Session) Ask(ctx context.Context, question string) (*Reply, error) {
	if s.state != StateIndexed || s.index == nil {
		return nil, domain.NewError(domain.KindIndexUnavailable, "process a document before asking", nil)
	}
	s.state = StateAnswering
	defer func() { s.state = StateIndexed }()

	retrieved, err := s.retriever.Retrieve(ctx, s.index, question, 0)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.Error(err))
		return nil, err
	}

	p := prompt.Assemble(retrieved, question)

	answer, err := s.generator.Generate(ctx, string(p))
	if err != nil {
		s.logger.Warn("generation failed", zap.String("generator", s.generator.Name()), zap.Error(err))
		return nil, domain.Wrap(domain.KindGenerationFailed, "generate answer with "+s.generator.Name(), err)
	}

	s.logger.Info("question answered", zap.Int("context_records", len(retrieved)))
	return &Reply{Context: retrieved, Prompt: p, Answer: answer}, nil
}

// Close releases the active index and resets the session to StateEmpty.
func (s *Session) Close(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close(ctx)
	s.index = nil
	s.source = ""
	s.records = 0
	s.state = StateEmpty
	return err
}
