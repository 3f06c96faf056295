package core

import "github.com/mikey-austin/pitv/pkg/pitv"

// EditFields are the scratch values of an edit buffer.
type EditFields struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsRRated    bool    `json:"isRRated"`
	Image       *string `json:"image"`
}

// EditBuffer is a copy-on-enter snapshot of a video being edited.
type EditBuffer struct {
	Path     string     `json:"path"`
	Original pitv.Video `json:"original"`
	Fields   EditFields `json:"fields"`
}

func (b EditBuffer) clone() EditBuffer {
	out := b
	if b.Original.Image != nil {
		img := *b.Original.Image
		out.Original.Image = &img
	}
	if b.Fields.Image != nil {
		img := *b.Fields.Image
		out.Fields.Image = &img
	}
	return out
}

// Editor holds open edit buffers keyed by video path. Nothing here reaches the
// server until Commit.
type Editor struct {
	buffers map[string]*EditBuffer
}

// NewEditor creates an editor with no open buffers.
func NewEditor() *Editor {
	return &Editor{buffers: make(map[string]*EditBuffer)}
}

// Begin opens (or reopens) an edit buffer from the video's current fields.
func (e *Editor) Begin(video pitv.Video) EditBuffer {
	buf := EditBuffer{
		Path:     video.Path,
		Original: video,
		Fields: EditFields{
			Title:       video.Title,
			Description: video.Description,
			IsRRated:    video.IsRRated,
			Image:       video.Image,
		},
	}
	buf = buf.clone()
	e.buffers[video.Path] = &buf
	return buf.clone()
}

// Get returns the buffer for path.
func (e *Editor) Get(path string) (EditBuffer, bool) {
	buf, ok := e.buffers[path]
	if !ok {
		return EditBuffer{}, false
	}
	return buf.clone(), true
}

// Set replaces the scratch fields for path.
func (e *Editor) Set(path string, fields EditFields) error {
	buf, ok := e.buffers[path]
	if !ok {
		return ErrNotEditing
	}
	buf.Fields = fields
	*buf = buf.clone()
	return nil
}

// Cancel discards the buffer for path.
func (e *Editor) Cancel(path string) bool {
	_, ok := e.buffers[path]
	delete(e.buffers, path)
	return ok
}

// Commit closes the buffer for path and returns the update to send. An empty
// edited title falls back to the original title.
func (e *Editor) Commit(path string) (pitv.VideoUpdate, error) {
	buf, ok := e.buffers[path]
	if !ok {
		return pitv.VideoUpdate{}, ErrNotEditing
	}
	delete(e.buffers, path)

	title := buf.Fields.Title
	if title == "" {
		title = buf.Original.Title
	}
	return pitv.VideoUpdate{
		Filename:    path,
		Title:       title,
		Description: buf.Fields.Description,
		IsRRated:    buf.Fields.IsRRated,
		Image:       buf.Fields.Image,
	}, nil
}

// All returns copies of every open buffer.
func (e *Editor) All() map[string]EditBuffer {
	out := make(map[string]EditBuffer, len(e.buffers))
	for path, buf := range e.buffers {
		out[path] = buf.clone()
	}
	return out
}

// apply mutates a buffer in place.
func (e *Editor) apply(path string, fn func(*EditFields)) error {
	buf, ok := e.buffers[path]
	if !ok {
		return ErrNotEditing
	}
	fn(&buf.Fields)
	return nil
}
