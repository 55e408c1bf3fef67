package protocol

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/session"
)

// Rooms looks up the session that owns a room
type Rooms interface {
	Get(id model.RoomID) (*session.Session, error)
	GetOrCreate(ctx context.Context, id model.RoomID) (*session.Session, error)
}

// Reply carries what an action returns to its caller, beyond the broadcast
type Reply struct {
	PlayerID model.PlayerID     // Set by join-room to the joined player
	Snapshot *model.Snapshot    // Set by join-room
	Guess    *model.GuessResult // Set by submit-guess
}

// Dispatcher routes decoded actions to room sessions. It is shared by
// every transport so they apply identical rules.
type Dispatcher struct {
	rooms  Rooms
	logger *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(rooms Rooms, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		rooms:  rooms,
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch applies an action on behalf of actor. Only join-room may be sent
// by a client that has not joined yet; it names the actor in its payload.
func (d *Dispatcher) Dispatch(ctx context.Context, actor model.PlayerID, action Action) (Reply, error) {
	d.logger.Debug("dispatching action",
		slog.String("type", string(action.Type())),
		slog.String("room", string(action.Room())),
		slog.String("actor", string(actor)))

	if join, ok := action.(JoinRoom); ok {
		return d.join(ctx, actor, join)
	}

	if actor == "" {
		return Reply{}, model.ErrNotJoined
	}
	sess, err := d.rooms.Get(action.Room())
	if err != nil {
		return Reply{}, err
	}

	switch a := action.(type) {
	case LeaveRoom:
		if err := checkSelf(actor, a.PlayerID); err != nil {
			return Reply{}, err
		}
		return Reply{}, sess.Leave(ctx, actor)

	case SwitchTeam:
		return Reply{}, sess.SwitchTeam(ctx, actor, targetOrSelf(actor, a.PlayerID), a.NewTeam)

	case SetRole:
		return Reply{}, sess.SetRole(ctx, actor, targetOrSelf(actor, a.PlayerID), a.Role)

	case StartGame:
		return Reply{}, sess.Start(ctx, actor)

	case PhaseChange:
		return Reply{}, sess.ChangePhase(ctx, actor, a.Phase, a.SkipToPhase)

	case AddDescription:
		if err := checkSelf(actor, a.PlayerID); err != nil {
			return Reply{}, err
		}
		return Reply{}, sess.AddDescription(ctx, actor, a.ImageID, a.Text)

	case RemoveDescription:
		if err := checkSelf(actor, a.PlayerID); err != nil {
			return Reply{}, err
		}
		return Reply{}, sess.RemoveDescription(ctx, actor, a.ImageID)

	case SubmitGuess:
		if err := checkSelf(actor, a.PlayerID); err != nil {
			return Reply{}, err
		}
		result, err := sess.SubmitGuess(ctx, actor, a.Word, a.Count)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Guess: result}, nil

	case ResetGame:
		return Reply{}, sess.Reset(ctx, actor)

	default:
		return Reply{}, fmt.Errorf("%w: %q", model.ErrUnknownAction, action.Type())
	}
}

func (d *Dispatcher) join(ctx context.Context, actor model.PlayerID, a JoinRoom) (Reply, error) {
	if a.Player.ID == "" {
		a.Player.ID = actor
	}
	if actor != "" && a.Player.ID != actor {
		return Reply{}, model.ErrActorMismatch
	}
	sess, err := d.rooms.GetOrCreate(ctx, a.RoomID)
	if err != nil {
		return Reply{}, err
	}
	snap, err := sess.Join(ctx, a.Player)
	if err != nil {
		return Reply{}, err
	}
	return Reply{PlayerID: a.Player.ID, Snapshot: &snap}, nil
}

func checkSelf(actor, claimed model.PlayerID) error {
	if claimed != "" && claimed != actor {
		return model.ErrActorMismatch
	}
	return nil
}

func targetOrSelf(actor, target model.PlayerID) model.PlayerID {
	if target == "" {
		return actor
	}
	return target
}
