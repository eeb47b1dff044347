package gattc

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"

	"github.com/srg/blegatt/internal/host"
)

// RemoteDescriptor is a descriptor discovered on the peer. Its operations
// share the owning characteristic's gate.
type RemoteDescriptor struct {
	uuid           ble.UUID
	handle         uint16
	characteristic *RemoteCharacteristic
}

func newRemoteDescriptor(chr *RemoteCharacteristic, desc *host.DescriptorDesc) *RemoteDescriptor {
	return &RemoteDescriptor{uuid: desc.UUID, handle: desc.Handle, characteristic: chr}
}

func (d *RemoteDescriptor) UUID() ble.UUID                        { return d.uuid }
func (d *RemoteDescriptor) Handle() uint16                        { return d.handle }
func (d *RemoteDescriptor) Characteristic() *RemoteCharacteristic { return d.characteristic }

// ReadValue reads the descriptor value from the peer.
func (d *RemoteDescriptor) ReadValue(ctx context.Context) ([]byte, error) {
	return readAttr(ctx, d.characteristic.client(), d.characteristic.gate, d.handle, "read descriptor")
}

// WriteValue writes the descriptor value with response.
func (d *RemoteDescriptor) WriteValue(ctx context.Context, data []byte) error {
	return writeAttr(ctx, d.characteristic.client(), d.characteristic.gate, d.handle, data, true, "write descriptor")
}

func (d *RemoteDescriptor) String() string {
	s := fmt.Sprintf("    Descriptor: uuid: %s", d.uuid)
	if name := ble.Name(d.uuid); name != "" {
		s += fmt.Sprintf(" (%s)", name)
	}
	return s + fmt.Sprintf(", handle: %d 0x%04x\n", d.handle, d.handle)
}
