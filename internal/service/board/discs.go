package board

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<circle cx="51" cy="54" r="40" fill="#000000" fill-opacity="0.30"/>
<circle cx="50" cy="50" r="40" fill="%s" stroke="%s" stroke-width="3"/>
<circle cx="40" cy="38" r="13" fill="#ffffff" fill-opacity="%s"/>
</svg>`

type discCacheKey struct {
	side flipello.Side
	size int
}

var (
	discCache   = map[discCacheKey]image.Image{}
	discCacheMu sync.RWMutex
)

func discSource(side flipello.Side) ([]byte, error) {
	switch side {
	case flipello.SideFirst:
		return []byte(fmt.Sprintf(discSVG, "#1b1b1f", "#000000", "0.12")), nil
	case flipello.SideSecond:
		return []byte(fmt.Sprintf(discSVG, "#f4f4f0", "#8a8a8a", "0.45")), nil
	default:
		return nil, fmt.Errorf("no disc for side %s", side)
	}
}

func renderDiscImage(side flipello.Side, size int) (image.Image, error) {
	key := discCacheKey{side: side, size: size}

	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	data, err := discSource(side)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()

	return img, nil
}
