package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bingoroom/internal/api"
	"github.com/mcoot/bingoroom/internal/factory"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/session"
	"github.com/mcoot/bingoroom/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	client *Client
	ctx    context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.app.MockClock.SetStep(time.Millisecond)
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		RegistryService: s.app.RegistryService,
		RosterService:   s.app.RosterService,
		HostService:     s.app.HostService,
		ResultsService:  s.app.ResultsService,
		HubManager:      s.app.HubManager,
	}))
	s.client = NewClient(s.server.URL + "/")
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
	s.NoError(s.app.Close())
}

func (s *ClientSuite) createRoom() model.RoomCode {
	room, err := s.client.CreateRoom(s.ctx)
	s.Require().NoError(err)
	return model.RoomCode(room.Code)
}

func (s *ClientSuite) TestHealth() {
	result, err := s.client.Health(s.ctx)
	s.Require().NoError(err)
	s.Equal("ok", result.Status)
}

func (s *ClientSuite) TestErrorsUnwrapToModelErrors() {
	_, err := s.client.GetRoom(s.ctx, "NOPE42")
	s.ErrorIs(err, model.ErrRoomNotFound)

	code := s.createRoom()
	_, err = s.client.Join(s.ctx, code, "")
	s.ErrorIs(err, model.ErrInvalidName)

	_, err = s.client.ClaimHost(s.ctx, code, "Max")
	s.Require().NoError(err)
	s.ErrorIs(s.client.Start(s.ctx, code, "Lewis"), model.ErrNotHost)
}

func (s *ClientSuite) TestUnreachableServerIsTransient() {
	s.server.Close()
	_, err := s.client.GetRoom(s.ctx, "ROOM01")
	s.ErrorIs(err, model.ErrTransient)
}

func (s *ClientSuite) TestBackendRoundTrip() {
	code := s.createRoom()

	player, err := s.client.Join(s.ctx, code, "Max")
	s.Require().NoError(err)
	s.Equal("Max", player.DisplayName)
	s.Equal(code, player.RoomCode)

	claim, err := s.client.ClaimHost(s.ctx, code, "Max")
	s.Require().NoError(err)
	s.True(claim.IsHost)

	s.Require().NoError(s.client.Start(s.ctx, code, "Max"))
	room, err := s.client.GetRoom(s.ctx, code)
	s.Require().NoError(err)
	s.True(room.Started)
	s.True(room.IsHost("Max"))

	_, err = s.client.SubmitResult(s.ctx, &model.Result{RoomCode: code, PlayerName: "Max", Score: 9, TotalTimeSeconds: 40})
	s.Require().NoError(err)

	board, err := s.client.Leaderboard(s.ctx, code)
	s.Require().NoError(err)
	s.Require().Len(board.Results, 1)
	s.Equal("Max", board.Winner.PlayerName)

	players, err := s.client.ListPlayers(s.ctx, code)
	s.Require().NoError(err)
	s.Len(players, 1)

	png, err := s.client.QR(s.ctx, code)
	s.Require().NoError(err)
	s.NotEmpty(png)
}

func (s *ClientSuite) TestSubscribeFiltersSubjects() {
	code := s.createRoom()

	sub, err := s.client.Subscribe(s.ctx, code, model.SubjectResults)
	s.Require().NoError(err)
	defer sub.Close()

	s.Require().Eventually(func() bool {
		hub := s.app.HubManager.GetHub(code)
		return hub != nil && hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.client.Join(s.ctx, code, "Max")
	s.Require().NoError(err)
	_, err = s.client.SubmitResult(s.ctx, &model.Result{RoomCode: code, PlayerName: "Max", Score: 1})
	s.Require().NoError(err)

	select {
	case ev := <-sub.C:
		s.Equal(model.SubjectResults, ev.Subject)
	case <-time.After(3 * time.Second):
		s.Fail("no event received")
	}
}

func (s *ClientSuite) TestSubscribeUnknownRoom() {
	_, err := s.client.Subscribe(s.ctx, "NOPE42")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ClientSuite) TestSessionsOverHTTP() {
	code := s.createRoom()
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	cfg := session.DefaultConfig()
	cfg.PollInterval = 100 * time.Millisecond
	cfg.RetryDelay = 20 * time.Millisecond

	hostCtl := session.NewController(code, s.client, cfg, testutil.NopLogger())
	guestCtl := session.NewController(code, NewClient(s.server.URL), cfg, testutil.NopLogger())
	done := make(chan struct{}, 2)
	for _, c := range []*session.Controller{hostCtl, guestCtl} {
		go func() {
			_ = c.Run(ctx)
			done <- struct{}{}
		}()
	}

	s.Require().Eventually(func() bool { return hostCtl.State().Phase == session.PhaseNameEntry }, 5*time.Second, 10*time.Millisecond)
	hostCtl.SubmitName("Max")
	s.Require().Eventually(func() bool { return hostCtl.State().Phase == session.PhaseLobby }, 5*time.Second, 10*time.Millisecond)

	s.Require().Eventually(func() bool { return guestCtl.State().Phase == session.PhaseNameEntry }, 5*time.Second, 10*time.Millisecond)
	guestCtl.SubmitName("Lewis")
	s.Require().Eventually(func() bool { return guestCtl.State().Phase == session.PhaseWaiting }, 5*time.Second, 10*time.Millisecond)

	s.Require().Eventually(func() bool { return len(hostCtl.State().Roster) == 2 }, 5*time.Second, 10*time.Millisecond)

	hostCtl.RequestStart()
	s.Require().Eventually(func() bool { return guestCtl.State().Phase == session.PhasePlaying }, 5*time.Second, 10*time.Millisecond)

	hostCtl.Complete(8, 50, 2)
	guestCtl.Complete(11, 70, 5)

	s.Require().Eventually(func() bool {
		for _, c := range []*session.Controller{hostCtl, guestCtl} {
			st := c.State()
			if st.Phase != session.PhaseDone || st.Leaderboard == nil || len(st.Leaderboard.Results) != 2 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	s.Equal("Lewis", hostCtl.State().Leaderboard.Winner.PlayerName)

	cancel()
	<-done
	<-done
}

func (s *ClientSuite) TestAPIErrorWithoutCodeIsTransientOn5xx() {
	err := decodeError(http.StatusBadGateway, []byte("upstream down"))
	s.ErrorIs(err, model.ErrTransient)

	err = decodeError(http.StatusTeapot, []byte("?"))
	s.NotErrorIs(err, model.ErrTransient)
}
