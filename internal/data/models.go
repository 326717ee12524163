// internal/data/models.go
package data

import (
	"slices"
	"time"
)

const (
	cmuCount      = 5
	cellsPerCMU   = 8
	mpptCount     = 4
	defaultMaxLen = 1000
)

// DefaultHistoryLimit is the number of samples kept per historic channel.
const DefaultHistoryLimit = defaultMaxLen

// Telemetry is the full dashboard state: latest readings plus chart history.
type Telemetry struct {
	Metric   Metric   `json:"metric"`
	Historic Historic `json:"historic"`
}

// Metric holds the latest value of every dashboard channel.
type Metric struct {
	// Overview
	PackVoltage       float64 `json:"Pack_Voltage"`
	SOCAh             float64 `json:"SOC_Ah"`
	PowerConsumption  float64 `json:"power_consumption"`
	SolarInput        float64 `json:"solar_input"`
	DistanceTravelled float64 `json:"distance_travelled"`
	MotorTemp         float64 `json:"Motor_Temp"`

	// Speed
	Speed     float64 `json:"Speed"`
	Predicted float64 `json:"predicted"`

	// Battery
	PackCurrent    float64        `json:"Pack_Current"`
	CMUs           []CMU          `json:"cmus"`
	BatteryRanges  BatteryRanges  `json:"battery_ranges"`
	PrechargeState float64        `json:"precharge_state"`
	ContactorFlags ContactorFlags `json:"contactor_flags"`
	BMSFlags       BMSFlags       `json:"bmsFlags"`

	// Motor
	MotorVelocity float64     `json:"Motor_Velocity"`
	Speed2        float64     `json:"Speed2"`
	HeatSinkTemp  float64     `json:"HeatSink_Temp"`
	PhaseACurrent float64     `json:"PhaseA_Current"`
	PhaseBCurrent float64     `json:"PhaseB_Current"`
	PhaseCCurrent float64     `json:"PhaseC_Current"`
	BusVoltage    float64     `json:"Bus_Voltage"`
	BusCurrent    float64     `json:"Bus_Current"`
	BusPower      float64     `json:"Bus_Power"`
	DSPBoardTemp  float64     `json:"DSP_Board_Temp"`
	MotorLimits   MotorLimits `json:"MotorLimits"`
	MotorErrors   MotorErrors `json:"MotorErrors"`

	// Solar
	MPPTs []MPPT `json:"mppts"`

	CabinSensors CabinSensors `json:"CabinSensors"`
}

// CMU is one battery module's cell monitoring unit.
type CMU struct {
	Temperature     float64   `json:"temperature"`
	CellTemperature float64   `json:"cell_temperature"`
	CellVoltages    []float64 `json:"cell_voltages"`
}

type BatteryRanges struct {
	MinTemp float64 `json:"min_temp"`
	MaxTemp float64 `json:"max_temp"`
	MinVolt float64 `json:"min_volt"`
	MaxVolt float64 `json:"max_volt"`
}

type ContactorFlags struct {
	Contactor1Error  bool `json:"contactor1_error"`
	Contactor2Error  bool `json:"contactor2_error"`
	Contactor3Error  bool `json:"contactor3_error"`
	Contactor1Output bool `json:"contactor1_output"`
	Contactor2Output bool `json:"contactor2_output"`
	Contactor3Output bool `json:"contactor3_output"`
	ContactorSupply  bool `json:"contactor_supply"`
}

type BMSFlags struct {
	CellOverVoltage      bool `json:"cell_over_voltage"`
	CellUnderVoltage     bool `json:"cell_under_voltage"`
	CellOverTemp         bool `json:"cell_over_temp"`
	MeasurementUntrusted bool `json:"measurement_untrusted"`
	CMUCommTimeout       bool `json:"cmu_comm_timeout"`
	VehicleCommTimeout   bool `json:"vehicle_comm_timeout"`
	BMSSetupMode         bool `json:"bms_setup_mode"`
	CMUCANStatus         bool `json:"cmu_can_status"`
	IsolationTestFail    bool `json:"isolation_test_fail"`
	SOCInvalid           bool `json:"soc_invalid"`
	CANSupplyLow         bool `json:"can_supply_low"`
	ContactorNotEngaged  bool `json:"contactor_not_engaged"`
	ExtraCellDetected    bool `json:"extra_cell_detected"`
}

type MotorLimits struct {
	IPMTempLimit          bool `json:"ipm_temp_limit"`
	BusVoltageLowerLimit  bool `json:"bus_voltage_lower_limit"`
	BusVoltageUpperLimit  bool `json:"bus_voltage_upper_limit"`
	BusCurrentLimit       bool `json:"bus_current_limit"`
	VelocityLimit         bool `json:"velocity_limit"`
	MotorCurrentLimit     bool `json:"motor_current_limit"`
	OutputVoltagePWMLimit bool `json:"output_voltage_pwm_limit"`
}

type MotorErrors struct {
	MotorOverSpeed      bool `json:"motor_over_speed"`
	DesaturationFault   bool `json:"desaturation_fault"`
	Rail15VUVLO         bool `json:"rail_15v_uvlo"`
	ConfigReadError     bool `json:"config_read_error"`
	WatchdogReset       bool `json:"watchdog_reset"`
	BadMotorPosition    bool `json:"bad_motor_position"`
	DCBusOverVoltage    bool `json:"dc_bus_over_voltage"`
	SoftwareOverCurrent bool `json:"software_over_current"`
	HardwareOverCurrent bool `json:"hardware_over_current"`
}

// MPPT is one solar maximum power point tracker.
type MPPT struct {
	InputVoltage      float64   `json:"Input_Voltage"`
	InputCurrent      float64   `json:"Input_Current"`
	OutputVoltage     float64   `json:"Output_Voltage"`
	OutputCurrent     float64   `json:"Output_Current"`
	OutputPower       float64   `json:"Output_Power"`
	Efficiency        float64   `json:"efficiency"`
	MosfetTemperature float64   `json:"Mosfet_Temperature"`
	MPPTTemperature   float64   `json:"MPPT_Temperature"`
	Flags             MPPTFlags `json:"flags"`
}

type MPPTFlags struct {
	HWOvervolt     bool `json:"hw_overvolt"`
	HWOvercurrent  bool `json:"hw_overcurrent"`
	Under12V       bool `json:"under12v"`
	LowArrayPower  bool `json:"low_array_power"`
	BatteryFull    bool `json:"battery_full"`
	BatteryLow     bool `json:"battery_low"`
	MosfetOverheat bool `json:"mosfet_overheat"`
}

type CabinSensors struct {
	COContent   float64 `json:"Cabin_CO_Content"`
	CH4Content  float64 `json:"Cabin_CH4_Content"`
	NH3Content  float64 `json:"Cabin_NH3_Content"`
	NO2Content  float64 `json:"Cabin_NO2_Content"`
	O2Content   float64 `json:"Cabin_O2_Content"`
	Temperature float64 `json:"Cabin_Temperature"`
	Pressure    float64 `json:"Cabin_Pressure"`
	CO2Content  float64 `json:"Cabin_CO2_Content"`
}

// Historic holds the bounded sample series used for charting.
type Historic struct {
	Timestamps []string  `json:"Timestamps"`
	Speed      []float64 `json:"Speed"`
	Battery    []float64 `json:"Battery"`
	Power      []float64 `json:"Power"`
	Solar      []float64 `json:"Solar"`

	PhaseACurrent []float64 `json:"PhaseA_Current"`

	// Motor
	BusPower      []float64 `json:"Bus_Power"`
	MotorVelocity []float64 `json:"Motor_Velocity"`
	Speed2        []float64 `json:"Speed2"`

	// Solar
	SolarInputVoltage []float64 `json:"solar_input_voltage"`
	SolarOutputPower  []float64 `json:"solar_output_power"`

	// Strategy
	Acceleration []float64 `json:"Acceleration"`
	Altitude     []float64 `json:"Altitude"`
	Latitudes    []float64 `json:"Latitudes"`
	Longitudes   []float64 `json:"Longitudes"`
}

// Alert - Structure for sending alerts
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"` // "WARN" or "CRITICAL"
	Message   string    `json:"message"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
}

const (
	SeverityWarn     = "WARN"
	SeverityCritical = "CRITICAL"
)

// InitialTelemetry returns a freshly allocated copy of the power-on defaults.
func InitialTelemetry() Telemetry {
	m := Metric{
		CMUs:  make([]CMU, cmuCount),
		MPPTs: make([]MPPT, mpptCount),
	}
	for i := range m.CMUs {
		m.CMUs[i].CellVoltages = make([]float64, cellsPerCMU)
	}

	return Telemetry{
		Metric: m,
		Historic: Historic{
			Timestamps:        []string{},
			Speed:             []float64{},
			Battery:           []float64{},
			Power:             []float64{},
			Solar:             []float64{},
			PhaseACurrent:     []float64{},
			BusPower:          []float64{},
			MotorVelocity:     []float64{},
			Speed2:            []float64{},
			SolarInputVoltage: []float64{},
			SolarOutputPower:  []float64{},
			Acceleration:      []float64{},
			Altitude:          []float64{},
			Latitudes:         []float64{},
			Longitudes:        []float64{},
		},
	}
}

// Clone returns a deep copy that shares no slices with t.
func (t Telemetry) Clone() Telemetry {
	return Telemetry{Metric: t.Metric.Clone(), Historic: t.Historic.Clone()}
}

func (m Metric) Clone() Metric {
	out := m
	if m.CMUs != nil {
		out.CMUs = make([]CMU, len(m.CMUs))
		for i, c := range m.CMUs {
			c.CellVoltages = slices.Clone(c.CellVoltages)
			out.CMUs[i] = c
		}
	}
	out.MPPTs = slices.Clone(m.MPPTs)
	return out
}

func (h Historic) Clone() Historic {
	return Historic{
		Timestamps:        slices.Clone(h.Timestamps),
		Speed:             slices.Clone(h.Speed),
		Battery:           slices.Clone(h.Battery),
		Power:             slices.Clone(h.Power),
		Solar:             slices.Clone(h.Solar),
		PhaseACurrent:     slices.Clone(h.PhaseACurrent),
		BusPower:          slices.Clone(h.BusPower),
		MotorVelocity:     slices.Clone(h.MotorVelocity),
		Speed2:            slices.Clone(h.Speed2),
		SolarInputVoltage: slices.Clone(h.SolarInputVoltage),
		SolarOutputPower:  slices.Clone(h.SolarOutputPower),
		Acceleration:      slices.Clone(h.Acceleration),
		Altitude:          slices.Clone(h.Altitude),
		Latitudes:         slices.Clone(h.Latitudes),
		Longitudes:        slices.Clone(h.Longitudes),
	}
}
