package entity

type Dish struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

/*
Mysql Table

CREATE TABLE dishes (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE
);

*/
