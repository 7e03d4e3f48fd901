package upload

import "sync"

// StagerState is the visible state of the staging area.
type StagerState int

const (
	Idle StagerState = iota
	DragActive
	FilesStaged
)

func (s StagerState) String() string {
	switch s {
	case DragActive:
		return "drag_active"
	case FilesStaged:
		return "files_staged"
	}
	return "idle"
}

// Stager collects the files and links of one summary draft. Files are
// validated on entry; rejected files are reported and never staged.
type Stager struct {
	mu    sync.Mutex
	drag  bool
	files []File
	links []Link
}

func NewStager() *Stager {
	return &Stager{}
}

func (s *Stager) State() StagerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.drag:
		return DragActive
	case len(s.files) > 0:
		return FilesStaged
	}
	return Idle
}

func (s *Stager) DragEnter() {
	s.mu.Lock()
	s.drag = true
	s.mu.Unlock()
}

func (s *Stager) DragLeave() {
	s.mu.Lock()
	s.drag = false
	s.mu.Unlock()
}

// Drop ends a drag and stages the dropped files.
func (s *Stager) Drop(fs ...File) []error {
	s.mu.Lock()
	s.drag = false
	s.mu.Unlock()
	return s.Select(fs...)
}

// Select stages every valid file and returns the rejections in order.
func (s *Stager) Select(fs ...File) []error {
	var rejected []error
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fs {
		if err := Validate(f); err != nil {
			f.Release()
			rejected = append(rejected, err)
			continue
		}
		s.files = append(s.files, f)
	}
	return rejected
}

// Remove unstages the first file called name and releases its preview.
func (s *Stager) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.Name == name {
			f.Release()
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// AddLink validates and appends a Google Docs link. Duplicates are ignored.
func (s *Stager) AddLink(raw string) (Link, error) {
	l, err := NewLink(raw)
	if err != nil {
		return Link{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.links {
		if have.URL == l.URL {
			return have, nil
		}
	}
	s.links = append(s.links, l)
	return l, nil
}

func (s *Stager) RemoveLink(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.links {
		if l.URL == u {
			s.links = append(s.links[:i], s.links[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns the staged files in the order they were added.
func (s *Stager) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]File(nil), s.files...)
}

// Links returns the staged links in the order they were added.
func (s *Stager) Links() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Link(nil), s.links...)
}

// LinkURLs returns the staged link URLs in order.
func (s *Stager) LinkURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l.URL)
	}
	return out
}

// Clear releases every preview and empties the stage.
func (s *Stager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		f.Release()
	}
	s.files = nil
	s.links = nil
	s.drag = false
}
