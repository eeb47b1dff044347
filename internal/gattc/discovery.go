package gattc

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/host"
)

// retrieveServices discovers every primary service, then walks them in
// discovery order to discover their characteristics and descriptors. The
// first failure aborts; whatever was inserted so far stays in place.
func (c *Client) retrieveServices(ctx context.Context) error {
	handle, ok := c.connID()
	if !ok {
		return device.ErrNotConnected
	}

	c.logger.WithField("conn_handle", handle).Debug(">> retrieveServices")

	w := c.searchGate.Take("discover-services")
	if rc := c.stack.DiscoverAllServices(handle, c.onServiceDiscovered); rc != host.StatusOK {
		w.Give(int(rc))
		return device.NewStatusError("discover services", rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	if res != 0 {
		return device.NewStatusError("discover services", host.Status(res))
	}

	services := c.allServices()
	for _, svc := range services {
		if err := svc.retrieveCharacteristics(ctx); err != nil {
			return err
		}
	}
	c.setHaveServices(true)

	c.logger.WithField("services", len(services)).Debug("<< retrieveServices")
	return nil
}

func (c *Client) onServiceDiscovered(conn host.ConnHandle, status host.Status, desc *host.ServiceDesc) host.Status {
	if conn != c.GetConnID() {
		return host.StatusOK
	}

	switch status {
	case host.StatusOK:
		svc := newRemoteService(c, desc)
		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.uuid.String(),
			"start_handle": desc.StartHandle,
			"end_handle":   desc.EndHandle,
		}).Debug("Service discovered")
		c.insertService(svc)
		return host.StatusOK
	case host.StatusEDone:
		c.searchGate.Give(int(host.StatusOK))
		return host.StatusOK
	default:
		c.logger.WithField("status", status.String()).Error("Service discovery failed")
		c.searchGate.Give(int(status))
		return status
	}
}

func (s *RemoteService) retrieveCharacteristics(ctx context.Context) error {
	handle, ok := s.client.connID()
	if !ok {
		return device.ErrNotConnected
	}

	w := s.gate.Take("discover-characteristics")
	rc := s.client.stack.DiscoverAllCharacteristics(handle, s.startHandle, s.endHandle, s.onCharacteristicDiscovered)
	if rc != host.StatusOK {
		w.Give(int(rc))
		return device.NewStatusError("discover characteristics", rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("discover characteristics of %s: %w", s.uuid, err)
	}
	if res != 0 {
		return device.NewStatusError("discover characteristics", host.Status(res))
	}

	chars := s.Characteristics()
	for i, chr := range chars {
		end := s.endHandle
		if i+1 < len(chars) {
			end = chars[i+1].defHandle - 1
		}
		if chr.valHandle >= end {
			continue
		}
		if err := s.retrieveDescriptors(ctx, chr, end); err != nil {
			return err
		}
	}
	return nil
}

func (s *RemoteService) onCharacteristicDiscovered(conn host.ConnHandle, status host.Status, desc *host.CharacteristicDesc) host.Status {
	if conn != s.client.GetConnID() {
		return host.StatusOK
	}

	switch status {
	case host.StatusOK:
		chr := newRemoteCharacteristic(s, desc)
		s.client.logger.WithFields(logrus.Fields{
			"service_uuid": s.uuid.String(),
			"char_uuid":    chr.uuid.String(),
			"val_handle":   desc.ValHandle,
		}).Debug("Characteristic discovered")
		s.insertCharacteristic(chr)
		return host.StatusOK
	case host.StatusEDone:
		s.gate.Give(int(host.StatusOK))
		return host.StatusOK
	default:
		s.gate.Give(int(status))
		return status
	}
}

// retrieveDescriptors discovers the descriptors in (chr.valHandle, end].
func (s *RemoteService) retrieveDescriptors(ctx context.Context, chr *RemoteCharacteristic, end uint16) error {
	handle, ok := s.client.connID()
	if !ok {
		return device.ErrNotConnected
	}

	w := s.gate.Take("discover-descriptors")
	cb := func(conn host.ConnHandle, status host.Status, chrValHandle uint16, desc *host.DescriptorDesc) host.Status {
		if conn != s.client.GetConnID() {
			return host.StatusOK
		}
		switch status {
		case host.StatusOK:
			if chrValHandle == chr.valHandle {
				chr.insertDescriptor(newRemoteDescriptor(chr, desc))
			}
			return host.StatusOK
		case host.StatusEDone:
			s.gate.Give(int(host.StatusOK))
			return host.StatusOK
		default:
			s.gate.Give(int(status))
			return status
		}
	}

	if rc := s.client.stack.DiscoverAllDescriptors(handle, chr.valHandle, end, cb); rc != host.StatusOK {
		w.Give(int(rc))
		return device.NewStatusError("discover descriptors", rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("discover descriptors of %s: %w", chr.uuid, err)
	}
	return device.NewStatusError("discover descriptors", host.Status(res))
}
