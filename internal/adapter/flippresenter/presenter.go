package flippresenter

import (
	"encoding/base64"
	"strings"

	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

// Presenter delivers formatted messages and board images without coupling to the command layer.
type Presenter struct {
	sendMessage func(room, message string) error
	sendImage   func(room, imageBase64 string) error
}

func NewPresenter(sendMessage func(room, message string) error, sendImage func(room, imageBase64 string) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

// Text sends a plain message.
func (p *Presenter) Text(room, message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(room, message)
}

// Board sends the caption first and then the board image.
func (p *Presenter) Board(room, message string, state *flipdto.SessionState) error {
	if p == nil {
		return nil
	}

	if err := p.Text(room, message); err != nil {
		return err
	}

	if state != nil && len(state.BoardImage) > 0 && p.sendImage != nil {
		encoded := base64.StdEncoding.EncodeToString(state.BoardImage)
		if err := p.sendImage(room, encoded); err != nil {
			return err
		}
	}

	return nil
}

// Broadcast delivers the same board to every distinct non-empty room.
func (p *Presenter) Broadcast(rooms []string, message string, state *flipdto.SessionState) error {
	seen := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if room == "" {
			continue
		}
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}
		if err := p.Board(room, message, state); err != nil {
			return err
		}
	}
	return nil
}
