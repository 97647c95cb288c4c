package lobby

import (
	"context"
	"encoding/json"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/store"
)

const (
	lobbiesRoot = "lobbies"
	pinsRoot    = "pins"
)

func LobbyPath(lobbyID string) string {
	return store.Join(lobbiesRoot, lobbyID)
}

func PinPath(pin string) string {
	return store.Join(pinsRoot, pin)
}

type LobbyRepository interface {
	GetLobby(ctx context.Context, lobbyID string) (*game.Lobby, error)
	SaveLobby(ctx context.Context, lobby *game.Lobby) error
	DeleteLobby(ctx context.Context, lobby *game.Lobby) error
	ListLobbies(ctx context.Context) ([]*game.Lobby, error)
	LobbyIDForPin(ctx context.Context, pin string) (string, bool, error)
	ReservePin(ctx context.Context, pin, lobbyID string) (bool, error)
	ReleasePin(ctx context.Context, pin string) error
}

// StoreLobbyRepository keeps lobby records in the shared store so every
// subscriber of lobbies/<id> observes each write.
type StoreLobbyRepository struct {
	store store.Store
}

func NewLobbyRepository(st store.Store) *StoreLobbyRepository {
	return &StoreLobbyRepository{store: st}
}

func (r *StoreLobbyRepository) GetLobby(ctx context.Context, lobbyID string) (*game.Lobby, error) {
	var l game.Lobby
	found, err := r.store.Get(ctx, LobbyPath(lobbyID), &l)
	if err != nil {
		return nil, apperrors.TransientSyncFailure("error reading lobby", err)
	}
	if !found {
		return nil, apperrors.NotFound("lobby not found")
	}
	if l.Players == nil {
		l.Players = map[string]*game.PlayerSlot{}
	}
	return &l, nil
}

func (r *StoreLobbyRepository) SaveLobby(ctx context.Context, lobby *game.Lobby) error {
	if err := r.store.Set(ctx, LobbyPath(lobby.ID), lobby); err != nil {
		return apperrors.TransientSyncFailure("error saving lobby", err)
	}
	return nil
}

func (r *StoreLobbyRepository) DeleteLobby(ctx context.Context, lobby *game.Lobby) error {
	if _, err := r.store.Delete(ctx, LobbyPath(lobby.ID)); err != nil {
		return apperrors.TransientSyncFailure("error deleting lobby", err)
	}
	if lobby.Pin != "" {
		return r.ReleasePin(ctx, lobby.Pin)
	}
	return nil
}

func (r *StoreLobbyRepository) ListLobbies(ctx context.Context) ([]*game.Lobby, error) {
	children, err := r.store.Children(ctx, lobbiesRoot)
	if err != nil {
		return nil, apperrors.TransientSyncFailure("error listing lobbies", err)
	}
	lobbies := make([]*game.Lobby, 0, len(children))
	for _, child := range children {
		var l game.Lobby
		if err := json.Unmarshal(child.Value, &l); err != nil {
			continue
		}
		lobbies = append(lobbies, &l)
	}
	return lobbies, nil
}

func (r *StoreLobbyRepository) LobbyIDForPin(ctx context.Context, pin string) (string, bool, error) {
	var lobbyID string
	found, err := r.store.Get(ctx, PinPath(pin), &lobbyID)
	if err != nil {
		return "", false, apperrors.TransientSyncFailure("error reading pin", err)
	}
	return lobbyID, found, nil
}

// ReservePin reports false when the pin already points at a live lobby. The
// claim is a single create, so two instances cannot hand out the same pin.
func (r *StoreLobbyRepository) ReservePin(ctx context.Context, pin, lobbyID string) (bool, error) {
	created, err := r.store.Create(ctx, PinPath(pin), lobbyID)
	if err != nil {
		return false, apperrors.TransientSyncFailure("error saving pin", err)
	}
	return created, nil
}

func (r *StoreLobbyRepository) ReleasePin(ctx context.Context, pin string) error {
	if _, err := r.store.Delete(ctx, PinPath(pin)); err != nil {
		return apperrors.TransientSyncFailure("error releasing pin", err)
	}
	return nil
}
