package snapshot

import (
	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/snmp/decoder"
	"github.com/vpbank/printer_monitor/snmp/oids"
)

type fieldSetter func(s *models.DeviceSnapshot, r decoder.Reading)

// fieldSetters maps every base metric to its snapshot field. Readings for
// metrics missing here are ignored.
var fieldSetters = map[oids.Metric]fieldSetter{
	oids.DeviceName:        func(s *models.DeviceSnapshot, r decoder.Reading) { s.BasicInfo.DeviceName = r.Text },
	oids.DeviceDescription: func(s *models.DeviceSnapshot, r decoder.Reading) { s.BasicInfo.DeviceDescription = r.Text },
	oids.Uptime:            func(s *models.DeviceSnapshot, r decoder.Reading) { s.BasicInfo.Uptime = r.Text },
	oids.Contact:           func(s *models.DeviceSnapshot, r decoder.Reading) { s.BasicInfo.Contact = r.Text },
	oids.Location:          func(s *models.DeviceSnapshot, r decoder.Reading) { s.BasicInfo.Location = r.Text },
	oids.PrinterStatus:     func(s *models.DeviceSnapshot, r decoder.Reading) { s.Status.PrinterStatus = models.Int64(r.Int) },
	oids.TonerLevel:        func(s *models.DeviceSnapshot, r decoder.Reading) { s.Consumables.TonerLevel = models.Int64(r.Int) },
	oids.MaxTonerLevel:     func(s *models.DeviceSnapshot, r decoder.Reading) { s.Consumables.MaxTonerLevel = models.Int64(r.Int) },
	oids.CompletedJobs:     func(s *models.DeviceSnapshot, r decoder.Reading) { s.Counters.CompletedJobs = models.Int64(r.Int) },
	oids.TotalPagesPrinted: func(s *models.DeviceSnapshot, r decoder.Reading) { s.Counters.TotalPagesPrinted = models.Int64(r.Int) },
	oids.TrayStatus:        func(s *models.DeviceSnapshot, r decoder.Reading) { s.Trays.Status = models.Int64(r.Int) },
	oids.TrayMaxCapacity:   func(s *models.DeviceSnapshot, r decoder.Reading) { s.Trays.MaxCapacity = models.Int64(r.Int) },
	oids.TrayCurrentLevel:  func(s *models.DeviceSnapshot, r decoder.Reading) { s.Trays.CurrentLevel = models.Int64(r.Int) },
	oids.ErrorState:        func(s *models.DeviceSnapshot, r decoder.Reading) { s.Errors.ErrorState = models.Int64(r.Int) },
}
