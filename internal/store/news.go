package store

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrPathUnsupported = errors.New("store: unsupported news path")
	ErrEmptyTitle      = errors.New("store: article title is empty")
)

// DefaultDataFlavor is the MIME flavor of plain article bodies.
const DefaultDataFlavor = "text/plain"

// Article is one news posting. The thread links carry sibling and child
// article ids; zero means no link.
type Article struct {
	ID           uint32
	Title        string
	Poster       string
	Date         time.Time
	Flags        uint32
	DataFlavor   string
	Data         string
	ParentID     uint32
	PrevID       uint32
	NextID       uint32
	FirstChildID uint32
}

type category struct {
	articles []*Article
	byID     map[uint32]*Article
	nextID   uint32
	lastRoot uint32
}

// Board is the threaded news tree. The board is flat: every path names a
// single top-level category.
type Board struct {
	mu    sync.RWMutex
	order []string
	cats  map[string]*category
	now   func() time.Time
}

// NewBoard creates a board with the given categories, preserving order.
func NewBoard(categories []string) *Board {
	b := &Board{cats: make(map[string]*category), now: time.Now}
	for _, name := range categories {
		b.addCategory(name)
	}
	return b
}

func (b *Board) addCategory(name string) {
	if _, ok := b.cats[name]; ok {
		return
	}
	b.order = append(b.order, name)
	b.cats[name] = &category{byID: make(map[uint32]*Article)}
}

// Categories returns the category names in creation order.
func (b *Board) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// resolve maps a slash-separated news path to a category. Nested paths are
// rejected rather than treated as missing, so callers can report them as
// unsupported instead of not-found.
func (b *Board) resolve(path string) (*category, error) {
	name := strings.Trim(path, "/")
	if name == "" || strings.Contains(name, "/") {
		return nil, ErrPathUnsupported
	}
	cat, ok := b.cats[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cat, nil
}

// Articles lists a category's articles in posting order.
func (b *Board) Articles(path string) ([]Article, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cat, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	out := make([]Article, len(cat.articles))
	for i, a := range cat.articles {
		out[i] = *a
	}
	return out, nil
}

// Article fetches one article by id.
func (b *Board) Article(path string, id uint32) (Article, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cat, err := b.resolve(path)
	if err != nil {
		return Article{}, err
	}
	a, ok := cat.byID[id]
	if !ok {
		return Article{}, ErrNotFound
	}
	return *a, nil
}

// Post appends an article to a category. A zero parent id posts a new
// thread; otherwise the article is linked as the parent's last child. The
// stored article, with its assigned id and thread links, is returned.
func (b *Board) Post(path, title, poster, flavor, data string, flags, parentID uint32) (Article, error) {
	if strings.TrimSpace(title) == "" {
		return Article{}, ErrEmptyTitle
	}
	if flavor == "" {
		flavor = DefaultDataFlavor
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cat, err := b.resolve(path)
	if err != nil {
		return Article{}, err
	}

	cat.nextID++
	a := &Article{
		ID:         cat.nextID,
		Title:      title,
		Poster:     poster,
		Date:       b.now().UTC(),
		Flags:      flags,
		DataFlavor: flavor,
		Data:       data,
		ParentID:   parentID,
	}

	if parentID == 0 {
		if cat.lastRoot != 0 {
			prev := cat.byID[cat.lastRoot]
			prev.NextID = a.ID
			a.PrevID = prev.ID
		}
		cat.lastRoot = a.ID
	} else {
		parent, ok := cat.byID[parentID]
		if !ok {
			return Article{}, ErrNotFound
		}
		if parent.FirstChildID == 0 {
			parent.FirstChildID = a.ID
		} else {
			sib := cat.byID[parent.FirstChildID]
			for sib.NextID != 0 {
				sib = cat.byID[sib.NextID]
			}
			sib.NextID = a.ID
			a.PrevID = sib.ID
		}
	}

	cat.articles = append(cat.articles, a)
	cat.byID[a.ID] = a
	return *a, nil
}
