// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package bridge

import (
	"os"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// From /usr/include/linux/i2c-dev.h & /usr/include/linux/i2c.h
const (
	i2cSlave = 0x0703
	i2cFuncs = 0x0705
	i2cSmbus = 0x0720

	i2cSmbusRead  = 1
	i2cSmbusWrite = 0

	i2cFuncSmbusQuick         = 0x00010000
	i2cFuncSmbusReadByte      = 0x00020000
	i2cFuncSmbusWriteByte     = 0x00040000
	i2cFuncSmbusReadByteData  = 0x00080000
	i2cFuncSmbusWriteByteData = 0x00100000

	i2cSmbusQuick    = 0
	i2cSmbusByte     = 1
	i2cSmbusByteData = 2
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

type i2cDevice struct {
	address uint8
	mutex   sync.Mutex
	file    *os.File
	funcs   uint64 // adapter functionality mask
}

var _ I2CDevice = &i2cDevice{}

// newI2CDevice opens the I2C bus at the given location & selects the given address.
func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	d := &i2cDevice{
		address: address,
	}
	var err error
	if d.file, err = os.OpenFile(location, os.O_RDWR, os.ModeDevice); err != nil {
		return nil, errors.Wrapf(err, "open '%s' failed", location)
	}
	if err := d.ioctl(i2cFuncs, uintptr(unsafe.Pointer(&d.funcs))); err != nil {
		d.closeFile()
		return nil, errors.Wrap(err, "querying functionality failed")
	}
	if err := d.ioctl(i2cSlave, uintptr(address)); err != nil {
		d.closeFile()
		return nil, errors.Wrapf(err, "setting address 0x%02x failed", address)
	}
	return d, nil
}

func (d *i2cDevice) closeFile() error {
	return d.file.Close()
}

// DetectDevice performs a quick write to check the presence of the device.
func (d *i2cDevice) DetectDevice() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.requireFunc(i2cFuncSmbusQuick, "quick"); err != nil {
		return err
	}
	return d.smbusAccess(i2cSmbusWrite, 0, i2cSmbusQuick, 0)
}

// Read a byte from given register
func (d *i2cDevice) ReadByteReg(reg uint8) (uint8, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.requireFunc(i2cFuncSmbusReadByteData, "read byte data"); err != nil {
		return 0, err
	}
	var data uint8
	if err := d.smbusAccess(i2cSmbusRead, reg, i2cSmbusByteData, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByteData[0x%02x](0x%02x) failed", d.address, reg)
	}
	return data, nil
}

// Write a byte to given register
func (d *i2cDevice) WriteByteReg(reg uint8, val uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.requireFunc(i2cFuncSmbusWriteByteData, "write byte data"); err != nil {
		return err
	}
	data := val
	if err := d.smbusAccess(i2cSmbusWrite, reg, i2cSmbusByteData, uintptr(unsafe.Pointer(&data))); err != nil {
		return errors.Wrapf(err, "writeByteData[0x%02x](0x%02x, 0x%02x) failed", d.address, reg, val)
	}
	return nil
}

// Read a byte from device
func (d *i2cDevice) ReceiveByte() (uint8, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.requireFunc(i2cFuncSmbusReadByte, "read byte"); err != nil {
		return 0, err
	}
	var data uint8
	if err := d.smbusAccess(i2cSmbusRead, 0, i2cSmbusByte, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByte[0x%02x] failed", d.address)
	}
	return data, nil
}

// Write a byte to device
func (d *i2cDevice) SendByte(val uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.requireFunc(i2cFuncSmbusWriteByte, "write byte"); err != nil {
		return err
	}
	if err := d.smbusAccess(i2cSmbusWrite, val, i2cSmbusByte, 0); err != nil {
		return errors.Wrapf(err, "writeByte[0x%02x](0x%02x) failed", d.address, val)
	}
	return nil
}

// Read a block of data directly from the device (/dev/...)
func (d *i2cDevice) ReadDevice(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n, err := d.file.Read(data)
	if err != nil {
		return errors.WithStack(err)
	}
	if n != len(data) {
		return errors.Errorf("expected to read %d bytes, actual read bytes is %d", len(data), n)
	}
	return nil
}

// Write a block of data directly to the device (/dev/...)
func (d *i2cDevice) WriteDevice(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n, err := d.file.Write(data)
	if err != nil {
		return errors.WithStack(err)
	}
	if n != len(data) {
		return errors.Errorf("expected to write %d bytes, actual written bytes is %d", len(data), n)
	}
	return nil
}

func (d *i2cDevice) requireFunc(mask uint64, name string) error {
	if d.funcs&mask == 0 {
		return errors.Errorf("SMBus %s not supported", name)
	}
	return nil
}

func (d *i2cDevice) smbusAccess(readWrite byte, command byte, size uint32, data uintptr) error {
	req := &i2cSmbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}
	return d.ioctl(i2cSmbus, uintptr(unsafe.Pointer(req)))
}

func (d *i2cDevice) ioctl(request, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), request, arg); errno != 0 {
		return errors.Wrapf(errno, "ioctl 0x%04x failed", request)
	}
	return nil
}
