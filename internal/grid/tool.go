package grid

import "fmt"

// Tool 是当前选中的工具。
type Tool int

const (
	Pen Tool = iota
	Eraser
)

func (t Tool) String() string {
	switch t {
	case Pen:
		return "pen"
	case Eraser:
		return "eraser"
	default:
		return fmt.Sprintf("tool(%d)", int(t))
	}
}

// ParseTool 解析工具选择命令中的工具名。
func ParseTool(s string) (Tool, error) {
	switch s {
	case "pen":
		return Pen, nil
	case "eraser":
		return Eraser, nil
	}
	return Pen, fmt.Errorf("unknown tool %q", s)
}

func (t Tool) MarshalText() ([]byte, error) {
	if t != Pen && t != Eraser {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

func (t *Tool) UnmarshalText(text []byte) error {
	parsed, err := ParseTool(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
