package assets

// unsupportedPlatformError signals an OS/arch combination with no published build.
type unsupportedPlatformError struct{ goos, goarch string }

func (e unsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.goos + "/" + e.goarch
}

// IsUnsupportedPlatform reports whether err indicates an unbuildable host.
func IsUnsupportedPlatform(err error) bool {
	_, ok := err.(unsupportedPlatformError)
	return ok
}

// unsupportedArchiveFormatError signals an override URL with an unrecognized suffix.
type unsupportedArchiveFormatError struct{ name string }

func (e unsupportedArchiveFormatError) Error() string {
	return "unsupported archive format: " + e.name
}

// IsUnsupportedArchiveFormat reports whether err indicates an unusable archive suffix.
func IsUnsupportedArchiveFormat(err error) bool {
	_, ok := err.(unsupportedArchiveFormatError)
	return ok
}
