package device

// Tag is an opaque capability or type marker such as "cap:temperature".
type Tag string

// Device type tags.
const (
	TagGateway Tag = "type:miio:gateway"
	TagLight   Tag = "type:light"
)

// Capability tags.
const (
	TagActions          Tag = "cap:actions"
	TagTemperature      Tag = "cap:temperature"
	TagMotion           Tag = "cap:motion"
	TagIlluminance      Tag = "cap:illuminance"
	TagBatteryLevel     Tag = "cap:battery-level"
	TagRelativeHumidity Tag = "cap:relative-humidity"
	TagSwitchablePower  Tag = "cap:switchable-power"
	TagBrightness       Tag = "cap:brightness"
	TagDimmable         Tag = "cap:dimmable"
	TagColorable        Tag = "cap:colorable"
)

// TagSet is an immutable set of tags that remembers insertion order.
type TagSet struct {
	order []Tag
	index map[Tag]struct{}
}

// NewTagSet builds a TagSet; duplicates are dropped.
func NewTagSet(tags ...Tag) TagSet {
	s := TagSet{index: make(map[Tag]struct{}, len(tags))}
	for _, t := range tags {
		if _, dup := s.index[t]; dup {
			continue
		}
		s.index[t] = struct{}{}
		s.order = append(s.order, t)
	}
	return s
}

// Has reports whether every given tag is in the set. Has() with no tags is
// true.
func (s TagSet) Has(tags ...Tag) bool {
	for _, t := range tags {
		if _, ok := s.index[t]; !ok {
			return false
		}
	}
	return true
}

// Tags returns a copy of the tags in insertion order.
func (s TagSet) Tags() []Tag {
	return append([]Tag(nil), s.order...)
}

// Len returns the number of tags.
func (s TagSet) Len() int {
	return len(s.order)
}
