package image

// PrintingType selects the ESC/POS raster command family.
type PrintingType string

const (
	BitImage PrintingType = "bitImage" // GS v 0
	Graphics PrintingType = "graphics" // GS 8 L, function 112
)

// Target receives packed raster data.
type Target interface {
	Raster(width, height, bytesWidth int, rasterData []byte, printingType PrintingType)
}
