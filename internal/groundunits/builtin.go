package groundunits

var builtin = []Blueprint{
	{Name: "flak18", Label: "8.8cm Flak 18", Type: "AAA", Era: "WW2", Range: "Short range"},
	{Name: "bofors40", Label: "Bofors 40mm", Type: "AAA", Era: "WW2", Range: "Short range"},
	{Name: "ZU-23 Emplacement", Label: "ZU-23", Type: "AAA", Era: "Early Cold War", Range: "Short range"},
	{Name: "ZSU-23-4 Shilka", Label: "ZSU-23-4 Shilka", Type: "AAA", Era: "Mid Cold War", Range: "Short range"},
	{Name: "Gepard", Label: "Gepard", Type: "AAA", Era: "Late Cold War", Range: "Short range"},
	{Name: "SA-18 Igla manpad", Label: "SA-18 Igla", Type: "MANPADS", Era: "Late Cold War", Range: "Short range"},
	{Name: "Soldier stinger", Label: "Stinger", Type: "MANPADS", Era: "Late Cold War", Range: "Short range"},
	{Name: "SA-24 Igla-S manpad", Label: "SA-24 Igla-S", Type: "MANPADS", Era: "Modern", Range: "Short range"},
	{Name: "Strela-1 9P31", Label: "SA-9 Strela-1", Type: "SAM Site", Era: "Mid Cold War", Range: "Short range"},
	{Name: "Osa 9A33 ln", Label: "SA-8 Osa", Type: "SAM Site", Era: "Mid Cold War", Range: "Short range"},
	{Name: "Tor 9A331", Label: "SA-15 Tor", Type: "SAM Site", Era: "Late Cold War", Range: "Short range"},
	{Name: "Roland ADS", Label: "Roland", Type: "SAM Site", Era: "Late Cold War", Range: "Short range"},
	{Name: "2S6 Tunguska", Label: "SA-19 Tunguska", Type: "SAM Site", Era: "Late Cold War", Range: "Short range"},
	{Name: "Kub 1S91 str", Label: "SA-6 Kub", Type: "SAM Site", Era: "Mid Cold War", Range: "Medium range"},
	{Name: "Hawk ln", Label: "MIM-23 Hawk", Type: "SAM Site", Era: "Mid Cold War", Range: "Medium range"},
	{Name: "SA-11 Buk LN 9A310M1", Label: "SA-11 Buk", Type: "SAM Site", Era: "Late Cold War", Range: "Medium range"},
	{Name: "NASAMS_LN_C", Label: "NASAMS", Type: "SAM Site", Era: "Modern", Range: "Medium range"},
	{Name: "S_75M_Volhov", Label: "SA-2 Volkhov", Type: "SAM Site", Era: "Early Cold War", Range: "Long range"},
	{Name: "S-300PS 5P85C ln", Label: "SA-10 S-300", Type: "SAM Site", Era: "Late Cold War", Range: "Long range"},
	{Name: "Patriot ln", Label: "MIM-104 Patriot", Type: "SAM Site", Era: "Modern", Range: "Long range"},
	{Name: "p-19 s-125 sr", Label: "P-19 Flat Face", Type: "Radar", Era: "Early Cold War", Range: "Medium range"},
	{Name: "1L13 EWR", Label: "1L13 EWR", Type: "Radar", Era: "Late Cold War", Range: "Long range"},
	{Name: "55G6 EWR", Label: "55G6 EWR", Type: "Radar", Era: "Late Cold War", Range: "Long range"},
	{Name: "FPS-117", Label: "AN/FPS-117", Type: "Radar", Era: "Modern", Range: "Long range"},
}
