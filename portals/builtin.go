package portals

import "time"

// Builtin returns the descriptors of the supported portals.
func Builtin() []Portal {
	return []Portal{policia(), dgt(), ayuntamientoValencia(), sanGVA()}
}

func policia() Portal {
	return Portal{
		ID:           Policia,
		Name:         "Policía Nacional",
		Description:  "NIE/TIE applications and renewals",
		BaseURL:      "https://sede.policia.gob.es",
		HostPatterns: []string{"policia.gob.es"},
		RateLimit:    30 * time.Second,
		Selectors: Selectors{
			DateSlots:             ".calendar-day:not(.disabled)",
			TimeSlots:             ".time-slot.available",
			LocationSelect:        "#provincia",
			AvailabilityIndicator: ".available, .libre",
			BookingButton:         ".btn-reservar",
			ErrorMessage:          ".error, .alert-danger",
		},
		Navigation: []NavigationStep{
			{Action: ActionClick, Selector: "#tramites", WaitFor: ".tramite-list"},
			{Action: ActionClick, Selector: `[data-tramite="NIE"]`, WaitFor: "#provincia"},
			{Action: ActionSelect, Selector: "#provincia", Value: LocationPlaceholder},
			{Action: ActionClick, Selector: ".btn-continuar", WaitFor: ".calendar"},
		},
		TaskTypes: []string{"nie_application", "tie_renewal"},
	}
}

func dgt() Portal {
	return Portal{
		ID:           DGT,
		Name:         "Dirección General de Tráfico",
		Description:  "Driving license exchange and renewals",
		BaseURL:      "https://sede.dgt.gob.es",
		HostPatterns: []string{"dgt.gob.es"},
		RateLimit:    45 * time.Second,
		Selectors: Selectors{
			DateSlots:             ".calendar-date.available",
			TimeSlots:             ".hour-slot:not(.occupied)",
			LocationSelect:        "#jefatura",
			AvailabilityIndicator: ".disponible",
			BookingButton:         ".confirmar-cita",
			ErrorMessage:          ".mensaje-error",
		},
		Navigation: []NavigationStep{
			{Action: ActionClick, Selector: "#canjear-permiso", WaitFor: "#jefatura"},
			{Action: ActionSelect, Selector: "#jefatura", Value: LocationPlaceholder},
			{Action: ActionClick, Selector: ".buscar-citas", WaitFor: ".calendario"},
		},
		TaskTypes: []string{"driving_license_exchange"},
	}
}

func ayuntamientoValencia() Portal {
	return Portal{
		ID:           AyuntamientoValencia,
		Name:         "Ayuntamiento de Valencia",
		Description:  "Municipal services including empadronamiento",
		BaseURL:      "https://www.valencia.es/ayuntamiento/webs/sede_electronica/",
		HostPatterns: []string{"valencia.es"},
		RateLimit:    60 * time.Second,
		Selectors: Selectors{
			DateSlots:             ".day.available",
			TimeSlots:             ".slot.free",
			LocationSelect:        "#distrito",
			AvailabilityIndicator: ".libre",
			BookingButton:         ".solicitar-cita",
			ErrorMessage:          ".error-msg",
		},
		// the district select is fixed; watcher location is the city
		Navigation: []NavigationStep{
			{Action: ActionClick, Selector: "#empadronamiento", WaitFor: "#distrito"},
			{Action: ActionSelect, Selector: "#distrito", Value: "Centro"},
			{Action: ActionClick, Selector: ".consultar-disponibilidad", WaitFor: ".calendario-citas"},
		},
		TaskTypes: []string{"empadronamiento"},
	}
}

func sanGVA() Portal {
	return Portal{
		ID:           SanGVA,
		Name:         "Conselleria de Sanidad - GVA",
		Description:  "Healthcare registration and SIP card",
		BaseURL:      "https://www.san.gva.es/",
		HostPatterns: []string{"san.gva.es"},
		RateLimit:    40 * time.Second,
		Selectors: Selectors{
			DateSlots:             ".fecha.disponible",
			TimeSlots:             ".hora:not(.ocupada)",
			LocationSelect:        "#centro-salud",
			AvailabilityIndicator: ".disponible",
			BookingButton:         ".pedir-cita",
			ErrorMessage:          ".aviso-error",
		},
		Navigation: []NavigationStep{
			{Action: ActionClick, Selector: "#nueva-sip", WaitFor: "#centro-salud"},
			{Action: ActionSelect, Selector: "#centro-salud", Value: LocationPlaceholder},
			{Action: ActionClick, Selector: ".ver-disponibilidad", WaitFor: ".calendar-widget"},
		},
		TaskTypes: []string{"sip_registration"},
	}
}
