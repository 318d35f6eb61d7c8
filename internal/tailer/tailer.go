package tailer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arashi-logworks/grokline/internal/dlq"
	"github.com/arashi-logworks/grokline/internal/logging"
	"github.com/arashi-logworks/grokline/internal/parser"
	"github.com/arashi-logworks/grokline/pkg/types"
)

// Tailer tails log files, feeds every line through a grok parser, and routes
// unparseable lines to a dead letter queue instead of handing raw strings
// downstream. A tailer with no grok pattern configured would just be a
// fsnotify-driven line reader; the parser is what makes it this module's
// input source rather than the teacher's.
type Tailer struct {
	paths   []string
	parser  parser.Parser
	dlq     *dlq.DeadLetterQueue
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	files   map[string]*tailedFile
	mu      sync.RWMutex
	eventCh chan *types.LogEvent
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stats types.ParserStats
}

type tailedFile struct {
	path   string
	file   *os.File
	reader *bufio.Reader
	offset int64
	inode  uint64
}

// New creates a new Tailer instance. dlq may be nil, in which case
// unparseable lines are dropped and counted rather than queued.
func New(paths []string, p parser.Parser, deadLetter *dlq.DeadLetterQueue, logger *logging.Logger) (*Tailer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	t := &Tailer{
		paths:   paths,
		parser:  p,
		dlq:     deadLetter,
		logger:  logger.WithComponent("tailer"),
		watcher: watcher,
		files:   make(map[string]*tailedFile),
		eventCh: make(chan *types.LogEvent, 1000),
		ctx:     ctx,
		cancel:  cancel,
	}

	return t, nil
}

// Start starts tailing files
func (t *Tailer) Start() error {
	for _, path := range t.paths {
		if err := t.openFile(path); err != nil {
			t.logger.Error().Err(err).Str("path", path).Msg("Failed to open file")
			// Continue with other files
		}
	}

	t.wg.Add(1)
	go t.watchLoop()

	return nil
}

// Stop stops the tailer
func (t *Tailer) Stop() {
	t.cancel()
	t.watcher.Close()
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tf := range t.files {
		if tf.file != nil {
			tf.file.Close()
		}
	}

	close(t.eventCh)
}

// Events returns the channel for log events
func (t *Tailer) Events() <-chan *types.LogEvent {
	return t.eventCh
}

// Stats returns a snapshot of this tailer's parse outcomes.
func (t *Tailer) Stats() types.ParserStats {
	return types.ParserStats{
		Parsed:  atomic.LoadInt64(&t.stats.Parsed),
		Failed:  atomic.LoadInt64(&t.stats.Failed),
		Dropped: atomic.LoadInt64(&t.stats.Dropped),
	}
}

// openFile opens a file and starts tailing from the end of it. This module
// has no persisted-offset store: a tailer restart resumes at the file's
// current end, same as `tail -f`, rather than replaying from a checkpoint.
func (t *Tailer) openFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}

	inode := getInode(stat)

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to seek file: %w", err)
	}
	t.logger.Info().Str("path", path).Msg("Starting from end of file")

	tf := &tailedFile{
		path:   path,
		file:   file,
		reader: bufio.NewReader(file),
		offset: offset,
		inode:  inode,
	}

	t.mu.Lock()
	t.files[path] = tf
	t.mu.Unlock()

	if err := t.watcher.Add(path); err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("Failed to add file to watcher")
	}

	t.wg.Add(1)
	go t.readLoop(tf)

	return nil
}

// reopenFile handles file rotation by reopening the file
func (t *Tailer) reopenFile(path string) error {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()

	if ok && tf.file != nil {
		tf.file.Close()
	}

	// Wait a bit for the new file to be created
	time.Sleep(100 * time.Millisecond)

	return t.openFile(path)
}

// readLoop reads lines from a file, parses each with the grok pattern, and
// routes the outcome: matched or raw-passthrough events go to Events(),
// lines the parser rejects outright go to the dead letter queue.
func (t *Tailer) readLoop(tf *tailedFile) {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		line, err := tf.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			t.logger.Error().Err(err).Str("path", tf.path).Msg("Error reading file")
			return
		}

		tf.offset += int64(len(line))

		t.handleLine(tf.path, line)
	}
}

func (t *Tailer) handleLine(path, line string) {
	event, err := t.parser.Parse(line, path)
	if err != nil {
		atomic.AddInt64(&t.stats.Failed, 1)
		if t.dlq != nil {
			raw := &types.LogEvent{Timestamp: time.Now(), Message: line, Source: path, Raw: line}
			if enqueueErr := t.dlq.Enqueue(raw, err, map[string]string{"parser": t.parser.Name()}); enqueueErr != nil {
				t.logger.Error().Err(enqueueErr).Str("path", path).Msg("Failed to enqueue to dead letter queue")
			}
		} else {
			atomic.AddInt64(&t.stats.Dropped, 1)
		}
		return
	}

	atomic.AddInt64(&t.stats.Parsed, 1)

	select {
	case t.eventCh <- event:
	case <-t.ctx.Done():
	}
}

// watchLoop watches for file events
func (t *Tailer) watchLoop() {
	defer t.wg.Done()

	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}

			t.handleEvent(event)

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Error().Err(err).Msg("File watcher error")

		case <-t.ctx.Done():
			return
		}
	}
}

// handleEvent handles file system events
func (t *Tailer) handleEvent(event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		// File was written to, readLoop will pick up the changes
		t.logger.Debug().Str("path", path).Msg("File write event")

	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		// File was removed or renamed (rotation)
		t.logger.Info().Str("path", path).Msg("File rotation detected")
		if err := t.reopenFile(path); err != nil {
			t.logger.Error().Err(err).Str("path", path).Msg("Failed to reopen file")
		}

	case event.Op&fsnotify.Create == fsnotify.Create:
		// New file created
		t.logger.Info().Str("path", path).Msg("File created")
		if err := t.openFile(path); err != nil {
			t.logger.Error().Err(err).Str("path", path).Msg("Failed to open file")
		}
	}
}

// getInode extracts inode from FileInfo
func getInode(fi os.FileInfo) uint64 {
	if stat, ok := fi.Sys().(*syscall.Stat_t); ok {
		return stat.Ino
	}
	return 0
}
