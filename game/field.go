package game

// DoorPosn is how far the players have to travel to reach the exit
const DoorPosn = 500

// ObjectKind is the type of thing occupying a square
type ObjectKind byte

const (
	KindNone ObjectKind = iota
	// KindRock is immovable and blocks the near end
	KindRock
	KindMonster
	KindPlayer
	// KindDoor is the exit square at the far end. It lives on the floor, so players can
	// stand on it.
	KindDoor
)

// Object is something on the playfield. Monsters and players carry their ID.
type Object struct {
	Kind ObjectKind
	ID   uint64
}

// Rune is the character used to draw the object
func (o Object) Rune() rune {
	switch o.Kind {
	case KindRock:
		return '#'
	case KindMonster:
		return 'M'
	case KindPlayer:
		return '@'
	case KindDoor:
		return '+'
	default:
		return '.'
	}
}

func (o Object) IsEmpty() bool {
	return o.Kind == KindNone
}

// Loc is a single square: an object standing on it and the floor underneath
type Loc struct {
	Object Object
	Floor  Object
}

// Top returns the object if there is one, otherwise the floor
func (l Loc) Top() Object {
	if !l.Object.IsEmpty() {
		return l.Object
	}

	return l.Floor
}

func (l Loc) Rune() rune {
	return l.Top().Rune()
}

// Field is the playfield, one long row of squares. It only grows as far as somebody
// has been able to see.
type Field struct {
	locs []Loc
}

func NewField() *Field {
	f := &Field{
		locs: []Loc{{Object: Object{Kind: KindRock}}},
	}
	f.InsertFloor(Object{Kind: KindDoor}, DoorPosn)

	return f
}

func (f *Field) Len() int {
	return len(f.locs)
}

// Establish grows the field so that posn exists
func (f *Field) Establish(posn int) {
	if len(f.locs) <= posn {
		grown := make([]Loc, posn+1)
		copy(grown, f.locs)
		f.locs = grown
	}
}

// At returns the square at posn, which must already exist
func (f *Field) At(posn int) *Loc {
	return &f.locs[posn]
}

func (f *Field) Insert(object Object, posn int) {
	f.Establish(posn)
	f.locs[posn].Object = object
}

func (f *Field) InsertFloor(object Object, posn int) {
	f.Establish(posn)
	f.locs[posn].Floor = object
}

// Clear removes whatever object stands at posn
func (f *Field) Clear(posn int) {
	if posn >= 0 && posn < len(f.locs) {
		f.locs[posn].Object = Object{}
	}
}

func (f *Field) HasObject(posn int) bool {
	return posn >= 0 && posn < len(f.locs) && !f.locs[posn].Object.IsEmpty()
}

func (f *Field) HasMonster(posn int) bool {
	return f.HasObject(posn) && f.locs[posn].Object.Kind == KindMonster
}

func (f *Field) HasPlayer(posn int) bool {
	return f.HasObject(posn) && f.locs[posn].Object.Kind == KindPlayer
}

// Render draws the squares from left up to but not including right. Squares past the
// live end of the field are blank.
func (f *Field) Render(left, right int) []rune {
	result := make([]rune, right-left)

	for i := range result {
		posn := left + i
		if posn < len(f.locs) {
			result[i] = f.locs[posn].Rune()
		} else {
			result[i] = ' '
		}
	}

	return result
}
