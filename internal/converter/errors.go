package converter

import "errors"

// Error taxonomy for one conversion attempt. Callers match categories with
// errors.Is; every error stays local to the attempt and never leaves a
// partially written output behind.
var (
	// ErrInvalidConfig covers bad width/height/quality/fps/ceiling values,
	// caught before any decode work begins.
	ErrInvalidConfig = errors.New("invalid conversion config")

	// ErrDecode covers unreadable files, unsupported codecs and corrupt
	// streams.
	ErrDecode = errors.New("decode failed")

	// ErrTransform covers resize and pixel-format failures.
	ErrTransform = errors.New("transform failed")

	// ErrEncode covers encoder rejections of the assembled frame set.
	ErrEncode = errors.New("encode failed")

	// ErrSizeTargetUnmet means the size search exhausted its quality and
	// frame-count ranges without reaching the byte budget. The smallest
	// achieved result is still reported alongside it.
	ErrSizeTargetUnmet = errors.New("size target unmet")
)
