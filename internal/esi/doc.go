// Package esi — кэширующий клиент к ESI (EVE Swagger Interface) и паре
// вспомогательных API (fuzzwork, OAuth verify).
//
// Для каждого вида сущности (система, созвездие, регион, планета, луна,
// пояс астероидов, звёздные врата, звезда, станция, тип предмета, персонаж,
// корпорация, альянс) клиент держит свой кэш id -> запись. Кэш живёт всё
// время процесса, заполняется лениво при первом обращении, без TTL и вытеснения:
// статика вселенной считается неизменной, имена персонажей/корпораций тоже.
//
// Отсутствие записи — не авария: не-2xx ответ, пустое или битое тело дают
// ErrNotFound, вызывающая сторона показывает "Unknown" или опускает строку.
// Сетевые ошибки возвращаются обёрнутыми и поднимаются до тика опросчика.
//
// Пример:
//
//	c := esi.New(esi.WithLogger(log))
//	sys, err := c.System(ctx, 30000142)
//	if errors.Is(err, esi.ErrNotFound) { ... }
//
//	// в обход кэша:
//	sys, err = c.System(ctx, 30000142, esi.WithoutCache())
//
//	// ближайший небесный объект; никогда не возвращает ошибку:
//	loc := c.Celestial(ctx, 40009077)
package esi
