package cl

import "errors"

// Enumerate returns every platform together with all of its devices.
// Platforms without devices are included with an empty device list.
func Enumerate(api API) ([]PlatformInfo, error) {
	platforms, err := api.PlatformIDs()
	if err != nil {
		if status, ok := StatusOf(err); ok && status == PlatformNotFoundKHR {
			return nil, nil
		}
		return nil, err
	}

	out := make([]PlatformInfo, 0, len(platforms))
	for _, pid := range platforms {
		info, err := api.PlatformInfo(pid)
		if err != nil {
			return nil, err
		}

		devices, err := enumerateDevices(api, pid)
		if err != nil {
			if errors.Is(err, ErrNoDevices) {
				info.Devices = nil
				out = append(out, info)
				continue
			}
			return nil, err
		}

		info.Devices = devices
		out = append(out, info)
	}

	return out, nil
}

func enumerateDevices(api API, platform PlatformID) ([]DeviceInfo, error) {
	ids, err := api.DeviceIDs(platform, DeviceTypeAll)
	if status, ok := StatusOf(err); ok && status == DeviceNotFound {
		return nil, ErrNoDevices
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoDevices
	}

	devices := make([]DeviceInfo, 0, len(ids))
	for _, id := range ids {
		info, err := api.DeviceInfo(id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, info)
	}
	return devices, nil
}
