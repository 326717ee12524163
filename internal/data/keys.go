// internal/data/keys.go
package data

// Metric channels.
var (
	MetricPackVoltage       = newMetricKey("Pack_Voltage", RevisionBase, func(m *Metric) *float64 { return &m.PackVoltage })
	MetricSOCAh             = newMetricKey("SOC_Ah", RevisionBase, func(m *Metric) *float64 { return &m.SOCAh })
	MetricPowerConsumption  = newMetricKey("power_consumption", RevisionBase, func(m *Metric) *float64 { return &m.PowerConsumption })
	MetricSolarInput        = newMetricKey("solar_input", RevisionBase, func(m *Metric) *float64 { return &m.SolarInput })
	MetricDistanceTravelled = newMetricKey("distance_travelled", RevisionBase, func(m *Metric) *float64 { return &m.DistanceTravelled })
	MetricMotorTemp         = newMetricKey("Motor_Temp", RevisionBase, func(m *Metric) *float64 { return &m.MotorTemp })

	MetricSpeed     = newMetricKey("Speed", RevisionBase, func(m *Metric) *float64 { return &m.Speed })
	MetricPredicted = newMetricKey("predicted", RevisionBase, func(m *Metric) *float64 { return &m.Predicted })

	MetricPackCurrent    = newMetricKey("Pack_Current", RevisionBase, func(m *Metric) *float64 { return &m.PackCurrent })
	MetricCMUs           = newMetricKey("cmus", RevisionBase, func(m *Metric) *[]CMU { return &m.CMUs })
	MetricBatteryRanges  = newMetricKey("battery_ranges", RevisionBase, func(m *Metric) *BatteryRanges { return &m.BatteryRanges })
	MetricPrechargeState = newMetricKey("precharge_state", RevisionBase, func(m *Metric) *float64 { return &m.PrechargeState })
	MetricContactorFlags = newMetricKey("contactor_flags", RevisionBase, func(m *Metric) *ContactorFlags { return &m.ContactorFlags })
	MetricBMSFlags       = newMetricKey("bmsFlags", RevisionBase, func(m *Metric) *BMSFlags { return &m.BMSFlags })

	MetricMotorVelocity = newMetricKey("Motor_Velocity", RevisionBase, func(m *Metric) *float64 { return &m.MotorVelocity })
	MetricSpeed2        = newMetricKey("Speed2", RevisionBase, func(m *Metric) *float64 { return &m.Speed2 })
	MetricHeatSinkTemp  = newMetricKey("HeatSink_Temp", RevisionBase, func(m *Metric) *float64 { return &m.HeatSinkTemp })
	MetricPhaseACurrent = newMetricKey("PhaseA_Current", RevisionBase, func(m *Metric) *float64 { return &m.PhaseACurrent })
	MetricPhaseBCurrent = newMetricKey("PhaseB_Current", RevisionBase, func(m *Metric) *float64 { return &m.PhaseBCurrent })
	MetricPhaseCCurrent = newMetricKey("PhaseC_Current", RevisionBase, func(m *Metric) *float64 { return &m.PhaseCCurrent })
	MetricBusVoltage    = newMetricKey("Bus_Voltage", RevisionBase, func(m *Metric) *float64 { return &m.BusVoltage })
	MetricBusCurrent    = newMetricKey("Bus_Current", RevisionBase, func(m *Metric) *float64 { return &m.BusCurrent })
	MetricBusPower      = newMetricKey("Bus_Power", RevisionBase, func(m *Metric) *float64 { return &m.BusPower })
	MetricDSPBoardTemp  = newMetricKey("DSP_Board_Temp", RevisionBase, func(m *Metric) *float64 { return &m.DSPBoardTemp })
	MetricMotorLimits   = newMetricKey("MotorLimits", RevisionBase, func(m *Metric) *MotorLimits { return &m.MotorLimits })
	MetricMotorErrors   = newMetricKey("MotorErrors", RevisionBase, func(m *Metric) *MotorErrors { return &m.MotorErrors })

	MetricMPPTs        = newMetricKey("mppts", RevisionBase, func(m *Metric) *[]MPPT { return &m.MPPTs })
	MetricCabinSensors = newMetricKey("CabinSensors", RevisionBase, func(m *Metric) *CabinSensors { return &m.CabinSensors })
)

// History channels.
var (
	HistoricTimestamps = newHistoricKey("Timestamps", RevisionBase, func(h *Historic) *[]string { return &h.Timestamps })
	HistoricSpeed      = newHistoricKey("Speed", RevisionBase, func(h *Historic) *[]float64 { return &h.Speed })
	HistoricBattery    = newHistoricKey("Battery", RevisionBase, func(h *Historic) *[]float64 { return &h.Battery })
	HistoricPower      = newHistoricKey("Power", RevisionBase, func(h *Historic) *[]float64 { return &h.Power })
	HistoricSolar      = newHistoricKey("Solar", RevisionBase, func(h *Historic) *[]float64 { return &h.Solar })

	HistoricPhaseACurrent = newHistoricKey("PhaseA_Current", RevisionBase, func(h *Historic) *[]float64 { return &h.PhaseACurrent })

	HistoricBusPower      = newHistoricKey("Bus_Power", RevisionBase, func(h *Historic) *[]float64 { return &h.BusPower })
	HistoricMotorVelocity = newHistoricKey("Motor_Velocity", RevisionBase, func(h *Historic) *[]float64 { return &h.MotorVelocity })
	HistoricSpeed2        = newHistoricKey("Speed2", RevisionBase, func(h *Historic) *[]float64 { return &h.Speed2 })

	HistoricSolarInputVoltage = newHistoricKey("solar_input_voltage", RevisionBase, func(h *Historic) *[]float64 { return &h.SolarInputVoltage })
	HistoricSolarOutputPower  = newHistoricKey("solar_output_power", RevisionBase, func(h *Historic) *[]float64 { return &h.SolarOutputPower })

	HistoricAcceleration = newHistoricKey("Acceleration", RevisionBase, func(h *Historic) *[]float64 { return &h.Acceleration })
	HistoricAltitude     = newHistoricKey("Altitude", RevisionBase, func(h *Historic) *[]float64 { return &h.Altitude })
	HistoricLatitudes    = newHistoricKey("Latitudes", RevisionGPS, func(h *Historic) *[]float64 { return &h.Latitudes })
	HistoricLongitudes   = newHistoricKey("Longitudes", RevisionGPS, func(h *Historic) *[]float64 { return &h.Longitudes })
)
