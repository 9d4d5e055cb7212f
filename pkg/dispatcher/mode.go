package dispatcher

import (
	"os"

	fserrors "github.com/marmos91/remotefs/pkg/errors"
)

// ParseMode maps an fopen-style mode to os.O_* flags.
//
// The mode is one of r, w, a, x, optionally followed by a single '+' or
// 'b'. 'b' has no effect.
//
//	r   O_RDONLY
//	r+  O_RDWR
//	w   O_WRONLY|O_CREATE|O_TRUNC
//	a   O_WRONLY|O_CREATE|O_APPEND
//	x   O_WRONLY|O_CREATE|O_EXCL
func ParseMode(mode string) (int, error) {
	if len(mode) < 1 || len(mode) > 2 {
		return 0, invalidMode(mode)
	}

	plus := false
	if len(mode) == 2 {
		switch mode[1] {
		case '+':
			plus = true
		case 'b':
		default:
			return 0, invalidMode(mode)
		}
	}

	var flags int
	switch mode[0] {
	case 'r':
		if plus {
			return os.O_RDWR, nil
		}
		return os.O_RDONLY, nil
	case 'w':
		flags = os.O_CREATE | os.O_TRUNC
	case 'a':
		flags = os.O_CREATE | os.O_APPEND
	case 'x':
		flags = os.O_CREATE | os.O_EXCL
	default:
		return 0, invalidMode(mode)
	}

	if plus {
		return flags | os.O_RDWR, nil
	}
	return flags | os.O_WRONLY, nil
}

func invalidMode(mode string) error {
	return fserrors.NewInvalidArgumentError("open", "", "invalid mode %q", mode)
}
