package client

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Driver steps its clients round-robin: one Act per client per step, in the
// order the clients were added. Identical clients and seed give identical
// runs.
type Driver struct {
	clients []Client
	steps   int
}

// NewDriver creates a driver over clients.
func NewDriver(clients ...Client) *Driver {
	return &Driver{clients: clients}
}

// Add appends c to the round-robin order.
func (d *Driver) Add(c Client) {
	d.clients = append(d.clients, c)
}

// Run performs n steps. It stops at the first client error.
func (d *Driver) Run(n int) error {
	for i := 0; i < n; i++ {
		for idx, c := range d.clients {
			if err := c.Act(); err != nil {
				return errors.Wrapf(err, "step %d client %d", d.steps, idx)
			}
		}
		d.steps++
	}
	logrus.Debugf("driver ran %d steps over %d clients", n, len(d.clients))
	return nil
}

// Steps returns the number of completed steps.
func (d *Driver) Steps() int { return d.steps }

// Clients returns the clients in round-robin order.
func (d *Driver) Clients() []Client { return d.clients }
