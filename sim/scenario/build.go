package scenario

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pubsim/sim"
	"github.com/inference-sim/pubsim/sim/client"
	"github.com/inference-sim/pubsim/sim/trace"
)

// Simulation is a scenario wired to a Server. Clients connect at their join
// step, then take part in every later driver step in spec order.
type Simulation struct {
	Server *sim.Server
	Trace  *trace.SimulationTrace

	spec      *Spec
	driver    *client.Driver
	joined    []bool
	recorders []*client.Recorder
	conns     map[string]*sim.Connection
}

// Build validates spec and creates its server. No client connects until
// Run reaches its join step.
func Build(spec *Spec) (*Simulation, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	server := sim.NewServer(sim.NewSimulationKey(spec.Seed))
	base := spec.DefaultConfig()
	if err := server.SetDefaultConfig(base); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(spec.Channels))
	for name := range spec.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := server.SetChannelConfig(sim.ChannelName(name), spec.Channels[name].Apply(base)); err != nil {
			return nil, err
		}
	}

	s := &Simulation{
		Server: server,
		spec:   spec,
		driver: client.NewDriver(),
		joined: make([]bool, len(spec.Clients)),
		conns:  make(map[string]*sim.Connection),
	}
	if trace.TraceLevel(spec.Trace) == trace.TraceLevelDecisions {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		server.SetTrace(s.Trace)
	}
	return s, nil
}

// Run performs n driver steps, connecting clients as their join step comes.
func (s *Simulation) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := s.join(s.driver.Steps()); err != nil {
			return err
		}
		if err := s.driver.Run(1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) join(step int) error {
	for i, cs := range s.spec.Clients {
		if s.joined[i] || cs.JoinStep > step {
			continue
		}
		var requested *sim.ClientID
		if cs.ID != nil {
			id := sim.ClientID(*cs.ID)
			requested = &id
		}
		conn, err := sim.Connect(s.Server, cs.Name, requested)
		if err != nil {
			return errors.Wrapf(err, "client[%d]", i)
		}
		c, err := s.newClient(cs, conn)
		if err != nil {
			return errors.Wrapf(err, "client[%d] %q", i, cs.Name)
		}
		s.driver.Add(c)
		s.conns[cs.Name] = conn
		s.joined[i] = true
		logrus.Infof("step %d: %s client %q joined as %d at t=%d", step, cs.Kind, cs.Name, conn.ID(), conn.StartTime())
	}
	return nil
}

func (s *Simulation) newClient(cs ClientSpec, conn *sim.Connection) (client.Client, error) {
	switch cs.Kind {
	case KindSequential:
		if cs.Declare {
			if err := conn.DeclarePublisher(sim.ChannelName(cs.Channel)); err != nil {
				return nil, err
			}
		}
		return client.NewSequentialNumbers(client.SequentialNumbersConfig{
			Name:          cs.Name,
			OutputChannel: sim.ChannelName(cs.Channel),
		}, conn), nil
	default:
		for _, sub := range cs.Subscribe {
			w, err := conn.Subscribe(sim.ChannelName(sub.Channel), sub.Window())
			if err != nil {
				return nil, err
			}
			logrus.Debugf("%q subscribed to %q during %s", cs.Name, sub.Channel, w)
		}
		rec := client.NewRecorder(cs.Name, conn)
		s.recorders = append(s.recorders, rec)
		return rec, nil
	}
}

// Recorders returns every connected recorder in join order.
func (s *Simulation) Recorders() []*client.Recorder { return s.recorders }

// Connection returns the connection of the named client, if it has joined.
func (s *Simulation) Connection(name string) (*sim.Connection, bool) {
	c, ok := s.conns[name]
	return c, ok
}

// Steps returns the number of completed driver steps.
func (s *Simulation) Steps() int { return s.driver.Steps() }
